// Package config loads the immutable configuration record shared by the
// memmachine-stack tools.
//
// Values come from the .env file in the working directory (parsed with
// github.com/joho/godotenv), the process environment, and literal
// defaults, in that order of precedence. The application's
// configuration.yml is parsed with gopkg.in/yaml.v3 only to discover the
// embedding model the stack serves through Ollama. The compose file, when
// present, supplies the project name and any explicit container names.
//
// A Config is built once by Load and never mutated afterwards; every
// component receives it by pointer.
package config
