// Package imagegen requests hero images from an OpenAI-compatible image
// endpoint, decodes the response envelope, and stores the result on disk,
// falling back to a rendered placeholder.
package imagegen
