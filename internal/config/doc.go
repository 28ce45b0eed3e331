// Package config loads server settings for the todos service.
//
// Values come from built-in defaults, an optional config.yaml in the working
// directory and TODOS_-prefixed environment variables, in increasing order of
// precedence. Load validates the merged result before returning it, so the
// rest of the program can trust every field.
package config
