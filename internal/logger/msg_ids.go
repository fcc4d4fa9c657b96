package logger

// Most non-error log messages are given a message ID that can be used to set
// the log level for that message. Errors do not get a message ID because you
// cannot turn errors into non-errors (otherwise the transform would
// incorrectly succeed). Messages that are only part of verbose output use
// "MsgID_None" instead.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Async lowering
	MsgID_Lower_LetConstHoisted
	MsgID_Lower_ArgumentsCaptured

	// Module interop
	MsgID_Interop_AmbiguousReexport
	MsgID_Interop_CommonJSMixedWithESM
	MsgID_Interop_DynamicReexport

	MsgID_END // Keep this at the end (used only for tests)
)

func StringToMsgIDs(str string, logLevel LogLevel, overrides map[MsgID]LogLevel) {
	switch str {
	// Async lowering
	case "let-const-hoisted":
		overrides[MsgID_Lower_LetConstHoisted] = logLevel
	case "arguments-captured":
		overrides[MsgID_Lower_ArgumentsCaptured] = logLevel

	// Module interop
	case "ambiguous-reexport":
		overrides[MsgID_Interop_AmbiguousReexport] = logLevel
	case "commonjs-mixed-with-esm":
		overrides[MsgID_Interop_CommonJSMixedWithESM] = logLevel
	case "dynamic-reexport":
		overrides[MsgID_Interop_DynamicReexport] = logLevel

	default:
		// Ignore invalid entries since this message id may have
		// been renamed/removed since when this code was written
	}
}

func MsgIDToString(id MsgID) string {
	switch id {
	// Async lowering
	case MsgID_Lower_LetConstHoisted:
		return "let-const-hoisted"
	case MsgID_Lower_ArgumentsCaptured:
		return "arguments-captured"

	// Module interop
	case MsgID_Interop_AmbiguousReexport:
		return "ambiguous-reexport"
	case MsgID_Interop_CommonJSMixedWithESM:
		return "commonjs-mixed-with-esm"
	case MsgID_Interop_DynamicReexport:
		return "dynamic-reexport"
	}

	return ""
}
