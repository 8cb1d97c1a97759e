// Package app drives the per-row pipeline: text, then image, then status.
package app
