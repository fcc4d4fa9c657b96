package runtime

// This package names the runtime support functions that transformed code
// calls. The functions themselves are not part of this repository. They are
// imported from the configured helpers module (the "@esdown/helpers" package
// by default) and from the regenerator runtime.

const (
	// The namespace binding that lowered files import the helpers module into
	HelpersRef = "_helpers"

	// The global that the regenerator runtime module installs
	RegeneratorRef = "regeneratorRuntime"
)

// Helpers exported by the helpers module
const (
	// asyncToGenerator(genFn) returns a function that runs the generator
	// returned by "genFn", resolving each yielded value as a promise
	AsyncToGenerator = "asyncToGenerator"

	// classCallCheck(instance, Constructor) throws a TypeError unless
	// "instance" was created by "new Constructor"
	ClassCallCheck = "classCallCheck"

	// createClass(Constructor, protoProps, staticProps) defines each
	// descriptor in the arrays as a non-enumerable property of the prototype
	// or of the constructor. "protoProps" may be null.
	CreateClass = "createClass"

	// interopRequireDefault(mod) returns "mod" if it has "__esModule" and
	// "{ default: mod }" otherwise
	InteropRequireDefault = "interopRequireDefault"

	// interopRequireWildcard(mod) returns a namespace object for "mod"
	InteropRequireWildcard = "interopRequireWildcard"

	// exportStar(mod, exports) copies every non-default property of "mod"
	// that "exports" does not already have as a getter
	ExportStar = "exportStar"
)

// Methods on the regenerator runtime global
const (
	Mark = "mark"
	Wrap = "wrap"
	Keys = "keys"
)

// Members of the context object passed to the state machine function
const (
	CtxPrev   = "prev"
	CtxNext   = "next"
	CtxSent   = "sent"
	CtxStop   = "stop"
	CtxAbrupt = "abrupt"
	CtxCatch  = "catch"
	CtxFinish = "finish"
)
