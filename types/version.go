package types

// Version is the canonical project version.
// CLI and batch report share this version per the lockstep versioning policy.
const Version = "0.3.0"
