package transform

import "context"

// FuncTransformer adapts an in-process function into a Transformer
type FuncTransformer struct {
	name   string
	suffix string
	fn     func(ctx context.Context, input, output string) error
}

// NewFuncTransformer creates a transformer calling fn with the input and <input><suffix>.
// It panics on a nil fn, which is a programming error.
func NewFuncTransformer(name, suffix string, fn func(ctx context.Context, input, output string) error) *FuncTransformer {
	if fn == nil {
		panic("transform: nil function for transformer " + name)
	}
	return &FuncTransformer{name: name, suffix: suffix, fn: fn}
}

// Name returns the name of this transformer
func (f *FuncTransformer) Name() string {
	return f.name
}

// Output returns the path of the artifact for input
func (f *FuncTransformer) Output(input string) string {
	return input + f.suffix
}

// Transform calls the wrapped function
func (f *FuncTransformer) Transform(ctx context.Context, tctx Context) error {
	input := tctx.Path()
	return f.fn(ctx, input, f.Output(input))
}
