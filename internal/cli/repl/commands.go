package repl

import (
	"fmt"
	"sort"
	"strings"
)

// commandHelp lists shell commands with their usage.
var commandHelp = map[string]string{
	"read":    "read PATH             show the data at PATH",
	"exists":  "exists PATH           report whether PATH holds data",
	"put":     "put PATH VALUE        replace PATH with a leaf",
	"merge":   "merge PATH VALUE      merge a leaf into PATH",
	"delete":  "delete PATH           remove the subtree at PATH",
	"store":   "store [NAME]          show or switch the datastore",
	"commit":  "commit                submit the open transaction",
	"cancel":  "cancel                discard the open transaction",
	"status":  "status                show the open transaction",
	"history": "history               list previous commands",
	"help":    "help                  show this list",
	"exit":    "exit                  leave the shell, cancelling open work",
}

// Resolve expands a unique command prefix: "rea" is "read".
func Resolve(word string) (string, error) {
	if _, ok := commandHelp[word]; ok {
		return word, nil
	}
	if word == "quit" {
		return "exit", nil
	}
	var matches []string
	for name := range commandHelp {
		if strings.HasPrefix(name, word) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("unknown command %q (try help)", word)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("ambiguous command %q: %s", word, strings.Join(matches, ", "))
	}
}

func helpText() string {
	names := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString("  " + commandHelp[name] + "\n")
	}
	return sb.String()
}
