package execcore

import "strings"

const (
	// GenericExecOutputMaxBytes caps a single stream for an ordinary command.
	GenericExecOutputMaxBytes = 6 * 1024
	// RipgrepExecOutputMaxBytes is used instead when the command is
	// recognizable as a bare ripgrep invocation, since rg's JSON/vimgrep
	// output is line-dense and a 6KiB cap truncates mid-match far too often.
	RipgrepExecOutputMaxBytes = 8 * 1024

	GenericTruncationNotice  = "[output truncated to 6 KiB; refine the command or request /relax for a temporary increase]"
	RipgrepTruncationNotice  = "[rg output truncated to 8 KiB; narrow the search (e.g., add filters) or request /relax]"
	AggregatedTruncationNote = "[aggregated output truncated]"

	// MaxExecOutputDeltas bounds how many delta events one exec call (stdout
	// and stderr together) will emit to subscribers before it stops emitting
	// (it keeps draining and
	// capturing, it just stops notifying) — guards against a pathological
	// command that writes millions of single-byte flushes.
	MaxExecOutputDeltas = 10_000

	readChunkSize = 8 * 1024
)

// OutputLimit bounds one ExecSupervisor invocation's captured output.
type OutputLimit struct {
	StreamMaxBytes     int
	AggregatedMaxBytes int
	TruncationNotice   string
}

// OutputLimitForCommand picks the generic or ripgrep-specific limit based on
// whether command resolves to a single bare `rg` invocation, including
// through a `sh -lc "..."`/`bash -lc "..."` wrapper.
func OutputLimitForCommand(command []string) OutputLimit {
	return outputLimitForCommand(command, GenericExecOutputMaxBytes, RipgrepExecOutputMaxBytes)
}

// outputLimitForCommand is OutputLimitForCommand with the generic/ripgrep
// byte caps as parameters, so ExecSupervisor can substitute an operator's
// CoreConfig overrides without changing the detection heuristic itself.
func outputLimitForCommand(command []string, genericMaxBytes, ripgrepMaxBytes int) OutputLimit {
	if commandInvokesRipgrep(command) {
		return OutputLimit{
			StreamMaxBytes:     ripgrepMaxBytes,
			AggregatedMaxBytes: ripgrepMaxBytes,
			TruncationNotice:   RipgrepTruncationNotice,
		}
	}
	return OutputLimit{
		StreamMaxBytes:     genericMaxBytes,
		AggregatedMaxBytes: genericMaxBytes,
		TruncationNotice:   GenericTruncationNotice,
	}
}

var loginShells = map[string]bool{
	"bash": true,
	"sh":   true,
	"zsh":  true,
}

// commandInvokesRipgrep reports whether command is exactly one plain `rg`
// invocation, either directly (["rg", ...]) or wrapped in a login shell's
// -lc form (["bash", "-lc", "rg --json term"]). A script containing shell
// operators (&&, ||, ;, |) is treated as multiple commands and returns
// false even if one of them is rg, since the limit must cover the whole
// script's output, not just rg's share of it.
func commandInvokesRipgrep(command []string) bool {
	argv, ok := resolvePlainCommand(command)
	if !ok {
		return false
	}
	if len(argv) == 0 {
		return false
	}
	return baseName(argv[0]) == "rg"
}

// resolvePlainCommand returns the single argv a command ultimately runs,
// unwrapping one level of `<shell> -lc "<script>"`. ok is false if command
// isn't in one of those two recognizable shapes, or if the wrapped script
// contains shell operators and so isn't a single plain command.
func resolvePlainCommand(command []string) ([]string, bool) {
	if len(command) == 0 {
		return nil, false
	}
	if len(command) != 3 || command[1] != "-lc" {
		return command, true
	}
	if !loginShells[baseName(command[0])] {
		return command, true
	}
	return tokenizeSingleShellCommand(command[2])
}

// tokenizeSingleShellCommand splits a shell script into argv using a
// whitespace/quote-aware tokenizer, rejecting scripts that use shell
// operators (the script isn't "a single plain command" in that case).
func tokenizeSingleShellCommand(script string) ([]string, bool) {
	var tokens []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			} else {
				cur.WriteRune(c)
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			} else {
				cur.WriteRune(c)
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == ' ' || c == '\t':
			flush()
		case c == '&' || c == '|' || c == ';' || c == '<' || c == '>' || c == '`' || c == '$':
			return nil, false
		default:
			cur.WriteRune(c)
		}
	}
	if inSingle || inDouble {
		return nil, false
	}
	flush()
	if len(tokens) == 0 {
		return nil, false
	}
	return tokens, true
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
