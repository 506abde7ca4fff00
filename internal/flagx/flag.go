package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs extracts from args only the flags named in allowedFlags,
// together with their values. Everything else is dropped.
//
// Two spellings are recognised:
//
//	-f value        flag and value as separate arguments
//	--flag=value    flag and value joined by '='
//
// A value is attached to a separate-argument flag only when the next
// token does not itself start with '-'. The returned slice is never
// nil, so it can be handed to flag.FlagSet.Parse directly.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, name := range allowedFlags {
		allowed[name] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--flag=value" form: match on the part before '='.
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			if _, ok := allowed[strings.SplitN(arg, "=", 2)[0]]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)

		// Take the following token as the value unless it looks like
		// another flag.
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// JsonConfigFlags reads the config file path from the -c / -config
// command-line flags, ignoring every other argument so that callers can
// define their own flags without clashes. Returns "" when neither flag
// is present.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
