// Package config loads the taskpad configuration from a YAML (or JSON) file,
// an optional .env file and TASKPAD_* environment variables, and fills in
// defaults so the rest of the program never sees an empty driver or path.
package config
