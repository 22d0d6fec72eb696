package llm

import (
	"fmt"
	"strings"

	"ad-studio-api/internal/domain/entity"
)

const generateSystemPrompt = `You are an award-winning radio ad copywriter.
Write a spoken ad script that fits the requested length when read aloud.
Return JSON only, in the form {"script":[{"line":"...","artDirection":"..."}]}.
"line" is the spoken text, "artDirection" is a short delivery or sound note.`

const refineSystemPrompt = `You edit radio ad scripts line by line.
Lines wrapped in [[SELECTED FOR MODIFICATION: n]] ... [[END SELECTED]] may be rewritten.
Lines wrapped in [[PRESERVE: n]] ... [[END PRESERVE]] must stay exactly as they are.
Return JSON only, in the form {"data":[{"line":"...","artDirection":"..."}],"modified_indices":[n]}
where data[i] is the new version of line modified_indices[i]. Do not include markers in the output.`

func generateUserPrompt(meta entity.AdMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", meta.ProductName)
	fmt.Fprintf(&b, "Target audience: %s\n", meta.TargetAudience)
	fmt.Fprintf(&b, "Key selling points: %s\n", meta.KeySellingPoints)
	fmt.Fprintf(&b, "Tone: %s\n", meta.Tone)
	fmt.Fprintf(&b, "Length: %d seconds\n", meta.AdLength.Seconds())
	if meta.SpeakerVoice != "" {
		fmt.Fprintf(&b, "Speaker voice: %s\n", meta.SpeakerVoice)
	}
	return b.String()
}

// markScript 用保留/选中标记渲染当前脚本
func markScript(script [][2]string, selected []int) string {
	sel := entity.NewSelectionSet(selected...)
	var b strings.Builder
	for i, t := range script {
		if sel.Contains(i) {
			fmt.Fprintf(&b, "[[SELECTED FOR MODIFICATION: %d]] %s | %s [[END SELECTED]]\n", i, t[0], t[1])
			continue
		}
		fmt.Fprintf(&b, "[[PRESERVE: %d]] %s | %s [[END PRESERVE]]\n", i, t[0], t[1])
	}
	return b.String()
}

func refineUserPrompt(req *entity.RefinementRequest) string {
	var b strings.Builder
	b.WriteString("Current script:\n")
	b.WriteString(markScript(req.CurrentScript, req.SelectedSentences))
	fmt.Fprintf(&b, "\nInstruction: %s\n", req.ImprovementInstruction)
	if req.KeySellingPoints != "" {
		fmt.Fprintf(&b, "Key selling points: %s\n", req.KeySellingPoints)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if req.AdLength > 0 {
		fmt.Fprintf(&b, "Length: %d seconds\n", req.AdLength)
	}
	return b.String()
}
