package main

// config carries the driver's whole configuration surface - one input
// file, one output path, and a handful of booleans - bound directly to
// cobra flags. mc's configuration is small enough that a dedicated
// config-file format would be overkill.
type config struct {
	// output is the path the generated NASM text is written to.
	output string

	// emitTokens dumps the lexer's token stream to stderr in addition to
	// compiling.
	emitTokens bool

	// emitIR dumps the generated IR's pretty-printed form to stderr.
	emitIR bool

	// debug raises the logger to debug level, logging the start of the
	// compile and the write of the output file; individual pipeline
	// stages are not logged.
	debug bool
}
