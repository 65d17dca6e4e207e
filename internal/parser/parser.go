// Package parser turns one input line into a pipeline.Spec. This is a
// deliberately small parser: whitespace-delimited tokens, `|` pipe
// separators, `<`/`>` redirection, and a trailing `&` background flag.
// Quoting, globbing, variables, and control flow are explicit
// Non-goals of the shell this parser feeds.
package parser

import (
	"fmt"
	"strings"

	"stsh/internal/pipeline"
)

// ErrTooManyArgs is returned when a single command exceeds
// pipeline.MaxArgs argument tokens.
type ErrTooManyArgs struct {
	Command string
	Limit   int
}

func (e *ErrTooManyArgs) Error() string {
	return fmt.Sprintf("%s: too many arguments (limit %d)", e.Command, e.Limit)
}

// ErrEmptyCommand is returned for a pipe segment with no tokens, e.g.
// "ls | | wc".
var ErrEmptyCommand = fmt.Errorf("parse error: empty command in pipeline")

// Parse parses line into a pipeline.Spec. line must already be
// non-empty and trimmed; the caller (the top-level loop) is
// responsible for skipping blank input.
func Parse(line string) (pipeline.Spec, error) {
	trimmed := strings.TrimSpace(line)

	background := false
	if strings.HasSuffix(trimmed, "&") {
		background = true
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "&"))
	}

	segments := strings.Split(trimmed, "|")
	spec := pipeline.Spec{Background: background, Raw: line}

	for i, seg := range segments {
		tokens := strings.Fields(seg)
		if len(tokens) == 0 {
			return pipeline.Spec{}, ErrEmptyCommand
		}

		clean, inFile, outFile, err := extractRedirection(tokens)
		if err != nil {
			return pipeline.Spec{}, err
		}
		if len(clean) == 0 {
			return pipeline.Spec{}, ErrEmptyCommand
		}

		if inFile != "" {
			if i != 0 {
				return pipeline.Spec{}, fmt.Errorf("parse error: input redirection only allowed on the first command")
			}
			spec.Input = inFile
		}
		if outFile != "" {
			if i != len(segments)-1 {
				return pipeline.Spec{}, fmt.Errorf("parse error: output redirection only allowed on the last command")
			}
			spec.Output = outFile
		}

		if len(clean)-1 > pipeline.MaxArgs {
			return pipeline.Spec{}, &ErrTooManyArgs{Command: clean[0], Limit: pipeline.MaxArgs}
		}

		spec.Commands = append(spec.Commands, pipeline.Command{
			Name: clean[0],
			Args: clean[1:],
		})
	}

	return spec, nil
}

// extractRedirection pulls `<` and `>` tokens (and their filename
// argument) out of tokens, returning the remaining command tokens.
func extractRedirection(tokens []string) (clean []string, inFile, outFile string, err error) {
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "<":
			if i+1 >= len(tokens) {
				return nil, "", "", fmt.Errorf("parse error: %q with no filename", "<")
			}
			inFile = tokens[i+1]
			i++
		case ">":
			if i+1 >= len(tokens) {
				return nil, "", "", fmt.Errorf("parse error: %q with no filename", ">")
			}
			outFile = tokens[i+1]
			i++
		default:
			clean = append(clean, tokens[i])
		}
	}
	return clean, inFile, outFile, nil
}
