// Package generator builds prompts and obtains post text from an LLM.
package generator
