package supervisor

import "strconv"

// ServerConfig is the identity of a desired running server. Two configs are
// equivalent iff every field matches exactly; a nil tuning field ("let the
// server decide") is distinct from any explicit value.
type ServerConfig struct {
	ModelPath      string
	ProjectorPath  string
	ContextSize    *int
	Threads        *int
	GPULayers      *int
	BatchSize      *int
	MicroBatchSize *int
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Equal reports exact field-by-field equivalence.
func (c ServerConfig) Equal(o ServerConfig) bool {
	return c.ModelPath == o.ModelPath &&
		c.ProjectorPath == o.ProjectorPath &&
		intPtrEqual(c.ContextSize, o.ContextSize) &&
		intPtrEqual(c.Threads, o.Threads) &&
		intPtrEqual(c.GPULayers, o.GPULayers) &&
		intPtrEqual(c.BatchSize, o.BatchSize) &&
		intPtrEqual(c.MicroBatchSize, o.MicroBatchSize)
}

// args builds the llama-server argument list. Tuning flags are included only
// when the corresponding field is set.
func (c ServerConfig) args(port int) []string {
	args := []string{
		"-m", c.ModelPath,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
	}
	if c.ProjectorPath != "" {
		args = append(args, "--mmproj", c.ProjectorPath)
	}
	if c.ContextSize != nil {
		args = append(args, "-c", strconv.Itoa(*c.ContextSize))
	}
	if c.Threads != nil {
		args = append(args, "-t", strconv.Itoa(*c.Threads))
	}
	if c.GPULayers != nil {
		args = append(args, "-ngl", strconv.Itoa(*c.GPULayers))
	}
	if c.BatchSize != nil {
		args = append(args, "-b", strconv.Itoa(*c.BatchSize))
	}
	if c.MicroBatchSize != nil {
		args = append(args, "-ub", strconv.Itoa(*c.MicroBatchSize))
	}
	return args
}
