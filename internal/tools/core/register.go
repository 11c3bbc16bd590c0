package core

import "aide/internal/tools"

// RegisterAll adds every core file tool to the registry.
func RegisterAll(r *tools.Registry) {
	r.MustRegister(ReadFileTool())
	r.MustRegister(WriteFileTool())
	r.MustRegister(WriteFilesTool())
	r.MustRegister(ReplaceInFileTool())
	r.MustRegister(ListFilesTool())
	r.MustRegister(GlobFilesTool())
	r.MustRegister(SearchFilesTool())
}
