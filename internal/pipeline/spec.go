// Package pipeline holds the parsed-pipeline value handed down from the
// parser collaborator, and the launcher that turns it into a running
// job.
package pipeline

// MaxArgs bounds the argument vector the parser will accept for a
// single command, the Go-native stand-in for the fixed-size argv array
// the original C++ shell required (original_source/stsh.cc's
// pipeline/command tokens array).
const MaxArgs = 512

// Command is one stage of a pipeline: a command name plus its argument
// vector.
type Command struct {
	Name string
	Args []string
}

// Spec is the pipeline value supplied by the parser: an ordered,
// non-empty list of commands, optional input/output redirection paths,
// and a background flag.
type Spec struct {
	Commands   []Command
	Input      string
	Output     string
	Background bool
	Raw        string // the original input line as given to the parser
}
