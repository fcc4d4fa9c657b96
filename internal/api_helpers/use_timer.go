package api_helpers

// Set by the "--timing" flag of the executable. Only the code that creates the
// root timer should look at this. Everything downstream receives a possibly-nil
// *helpers.Timer and must treat nil as "timing disabled".
var UseTimer bool
