// Package app contains the headless driver of the editor core. It loads the
// editor configuration and a recipe, opens a session on it and runs one
// command (check, estimate, save or watch), decoupled from any specific
// entrypoint like a CLI.
package app
