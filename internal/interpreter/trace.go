package interpreter

import "github.com/embervm/embervm/internal/process"

// captureTrace walks t's frame stack innermost-first, resolving each
// frame's current instruction index to a source line via its method's
// SourceLines table. A supplemented feature beyond the bare "drop
// expansion" core spec.md describes: an unhandled Throw is far more
// useful to a program author with a trace attached, matching the
// original implementation's panic-trace behaviour (spec.md §7).
func captureTrace(t *process.Task) []process.TraceFrame {
	trace := make([]process.TraceFrame, 0, len(t.Stack))
	for i := len(t.Stack) - 1; i >= 0; i-- {
		f := t.Stack[i]
		var line int32 = -1
		if idx := int(f.Index); idx >= 0 && idx < len(f.Method.SourceLines) {
			line = f.Method.SourceLines[idx]
		}
		trace = append(trace, process.TraceFrame{
			MethodName: f.Method.Name,
			SourceFile: f.Method.SourceFile,
			Line:       line,
		})
	}
	return trace
}
