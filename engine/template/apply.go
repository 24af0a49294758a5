package template

import "github.com/lyzr/workflow-engine/engine/schema"

// ApplyToNodeData returns a copy of data with every field the grammar
// applies to (script, commands[], prompt, path, scriptFile, scriptArgs[])
// resolved against outputs/labels/inputs.
func ApplyToNodeData(data schema.NodeData, outputs OutputLookup, labels map[string]string, inputs map[string]any) schema.NodeData {
	out := data
	out.Script = Resolve(data.Script, outputs, labels, inputs)
	out.Prompt = Resolve(data.Prompt, outputs, labels, inputs)
	out.Path = Resolve(data.Path, outputs, labels, inputs)
	out.ScriptFile = Resolve(data.ScriptFile, outputs, labels, inputs)

	if len(data.Commands) > 0 {
		out.Commands = make([]string, len(data.Commands))
		for i, c := range data.Commands {
			out.Commands[i] = Resolve(c, outputs, labels, inputs)
		}
	}
	if len(data.ScriptArgs) > 0 {
		out.ScriptArgs = make([]string, len(data.ScriptArgs))
		for i, a := range data.ScriptArgs {
			out.ScriptArgs[i] = Resolve(a, outputs, labels, inputs)
		}
	}
	return out
}
