package domain

const (
	// CLAIMS_FILE_SUFFIX is appended to the lower-cased contract address to form the claims file name
	CLAIMS_FILE_SUFFIX = "_claimableAddresses.json"

	// CLAIMS_CHANGED_SUBJECT_PREFIX is the NATS subject prefix for claims change notifications
	CLAIMS_CHANGED_SUBJECT_PREFIX = "claims"
)
