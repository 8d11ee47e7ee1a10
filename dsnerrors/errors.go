package dsnerrors

import (
	"errors"
	"strings"
)

// Malformed input (M) Errors - detected before any cryptographic work begins.
var (
	ErrMMalformedInput       = errors.New("M1|MalformedInput: Input buffer has the wrong size or layout.")
	ErrMShardIndexOutOfRange = errors.New("M2|ShardIndexOutOfRange: Shard index is outside [0, 2N).")
	ErrMDuplicateShardIndex  = errors.New("M3|DuplicateShardIndex: The same shard index was supplied more than once.")
	ErrMNonCanonicalScalar   = errors.New("M4|NonCanonicalScalar: Field element encoding is not canonical (>= field modulus).")
	ErrMMalformedCommitment  = errors.New("M5|MalformedCommitment: Commitment bytes do not decode to a valid curve point.")
	ErrMMalformedProof       = errors.New("M6|MalformedProof: Opening proof bytes do not decode to a valid curve point.")
	ErrMRecordTooLarge       = errors.New("M7|RecordTooLarge: Record does not fit into a single segment.")
	ErrMEmptyRecord          = errors.New("M8|EmptyRecord: Records must be non-empty.")
	ErrMMixedSegments        = errors.New("M9|MixedSegments: Pieces reference more than one segment index.")
	ErrMMixedCommitments     = errors.New("M10|MixedCommitments: Pieces for one segment carry conflicting commitments.")
)

// Insufficient data (I) Errors - callers may fetch more shards and retry.
var (
	ErrIInsufficientPoints       = errors.New("I1|InsufficientPoints: Fewer evaluation points than required polynomial degree + 1.")
	ErrIInsufficientShards       = errors.New("I2|InsufficientShards: Fewer than N distinct shards supplied for reconstruction.")
	ErrIReconstructionImpossible = errors.New("I3|ReconstructionImpossible: Fewer than N valid pieces remain after verification.")
)

// Cryptographic verification (V) Errors - adversarial or corrupted input, never fatal.
var (
	ErrVProofInvalid = errors.New("V1|ProofInvalid: Opening proof does not verify against the commitment at this index.")
)

// Parameter (P) Errors - structured reference string problems.
var (
	ErrPParamsMismatch  = errors.New("P1|ParamsMismatch: Commitment or proof was produced under different public parameters.")
	ErrPParamsMalformed = errors.New("P2|ParamsMalformed: Public parameter blob is corrupt or has an unknown version.")
	ErrPParamsTooSmall  = errors.New("P3|ParamsTooSmall: Public parameters support a smaller polynomial degree than required.")
)

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameDesc := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameDesc[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}
