package roles

import (
	"fmt"
	"strings"

	"github.com/tembric/ensemble/internal/tools"
	"github.com/tembric/ensemble/pkg/models"
)

const plannerSystem = `You are a planning agent. Break the given task into a numbered
list of concrete research steps. Output ONLY the numbered list, one step
per line, in this exact format:

1. First step description
2. Second step description [after: 1]
3. Third step description [after: 1,2]

Mark a step with [after: i,j] only when it genuinely needs the findings
of earlier steps. Independent steps must not carry an [after] marker so
they can run in parallel. Use between 2 and 6 steps.`

const researcherSystem = `You are a research agent. Investigate the assigned step thoroughly
and report concrete findings. Be specific: cite facts, numbers, and
mechanisms rather than generalities. Output only the findings.`

const criticSystem = `You are a critique agent. Evaluate the research findings against the
original task. Output in this exact format:

SCORE: <number between 0 and 10>
ISSUES:
- <issue, or "none">
STRENGTHS:
- <strength>

When an issue concerns a specific research step, name it as "step N" in
the issue text. Score 10 means the findings fully cover the task.`

const synthesizerSystem = `You are a synthesis agent. Combine the research findings into one
coherent, well-structured answer to the original task. Address any
critique issues listed. Output only the final answer.`

const factCheckerSystem = `You are a fact-checking agent. Verify claims in the draft using the
available tools. To call a tool, output a line in this exact format:

TOOL: <name> <json arguments>

After your tool calls, output VERDICT: followed by a short assessment of
which claims were confirmed or contradicted.`

func plannerPrompt(task models.Task) string {
	return fmt.Sprintf("Task: %s\n\nProduce the research plan.", task.Description)
}

func researcherPrompt(task models.Task, step models.PlanStep, priorFindings []string, issues []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\nYour assigned step: %d. %s\n",
		task.Description, step.StepNumber, step.Description)

	if len(priorFindings) > 0 {
		b.WriteString("\nFindings from steps this one depends on:\n")
		for _, f := range priorFindings {
			fmt.Fprintf(&b, "%s\n", f)
		}
	}
	if len(issues) > 0 {
		b.WriteString("\nA previous attempt was critiqued. Address these issues:\n")
		for _, issue := range issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	return b.String()
}

func criticPrompt(task models.Task, plan string, findings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\nPlan:\n%s\n\nResearch findings:\n", task.Description, plan)
	for _, f := range findings {
		fmt.Fprintf(&b, "%s\n\n", f)
	}
	b.WriteString("Evaluate the findings.")
	return b.String()
}

func synthesizerPrompt(task models.Task, findings []string, critique *models.CritiqueResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\nResearch findings:\n", task.Description)
	for _, f := range findings {
		fmt.Fprintf(&b, "%s\n\n", f)
	}
	if critique != nil && len(critique.Issues) > 0 {
		b.WriteString("Critique issues to address:\n")
		for _, issue := range critique.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}
	b.WriteString("Produce the final answer.")
	return b.String()
}

func factCheckerPrompt(artifact string, schemas []tools.Schema) string {
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, s := range schemas {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
		for name, p := range s.Parameters {
			fmt.Fprintf(&b, "    %s (%s): %s\n", name, p.Type, p.Description)
		}
	}
	fmt.Fprintf(&b, "\nDraft to verify:\n%s\n", artifact)
	return b.String()
}
