package tools

// RegisterBuiltins populates a registry with the six built-in tools,
// all scoped to the given project root.
func RegisterBuiltins(reg *Registry, scope *Scope, limits Limits) error {
	builtins := []Tool{
		NewShellTool(scope, limits),
		NewReadFileTool(scope, limits),
		NewWriteFileTool(scope),
		NewDeleteFileTool(scope),
		NewListDirTool(scope, limits),
		NewFindFileTool(scope, limits),
	}
	for _, t := range builtins {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
