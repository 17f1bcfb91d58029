package ai

import (
	"fmt"
	"strings"
)

// Agent is one role in the summarization crew.
type Agent struct {
	Role      string
	Goal      string
	Backstory string
}

// Task is a unit of work handed to an agent.
type Task struct {
	Description    string
	ExpectedOutput string
}

var (
	summarizerAgent = Agent{
		Role: "Meeting Summarizer",
		Goal: "Summarize the meeting in a very comprehensive and concise way.",
		Backstory: `You are an extremely experienced secretary who summarizes meetings in a concise and
comprehensive form without skipping the important points that were discussed. This helps
the company stakeholders stay updated.`,
	}

	consultantAgent = Agent{
		Role: "Senior AI Consultant",
		Goal: "Help the team by suggesting breakthroughs to their current problems or better approaches to reaching the goal.",
		Backstory: `You are a highly experienced AI consultant specializing in Python who has worked with top firms for years.
You go through the discussion in the meeting transcript and wherever you notice a roadblock being
discussed, you suggest a breakthrough.`,
	}

	reportAgent = Agent{
		Role: "Expert Report Generator",
		Goal: "Take the output from the other agents and generate a high-level report.",
		Backstory: `You are an expert report generator who compiles different outputs into a single document
presented to company stakeholders to keep them updated on their projects.`,
	}
)

func summaryTask(transcript string) Task {
	return Task{
		Description:    fmt.Sprintf("Summarize the following meeting transcript in a very comprehensive way in about 300 words.\n\nTranscript:\n\"\"\"\n%s\n\"\"\"", transcript),
		ExpectedOutput: "2-3 well formatted paragraphs.",
	}
}

func consultTask(transcript string) Task {
	return Task{
		Description: fmt.Sprintf("Go through the following meeting transcript. Wherever a roadblock is encountered or a better approach to the problem is available, suggest breakthroughs.\n\nTranscript:\n\"\"\"\n%s\n\"\"\"", transcript),
		ExpectedOutput: `Problem: describe the problem
Current approach: the approach the team has currently decided on
Suggested approach: a better approach than the one currently decided by the team`,
	}
}

func reportTask(summary, consultation string) Task {
	return Task{
		Description: fmt.Sprintf(`Take the outputs of the other tasks and generate a very high-level report summary that non-technical readers can follow.

Meeting summary:
%s

Consultant notes:
%s`, summary, consultation),
		ExpectedOutput: `A "Meeting Summary" heading, then the whole summary in paragraphs.
Encountered Problems: only the problems as bullet points, not the breakthroughs.`,
	}
}

// buildMessages renders an agent and a task into system and user prompts.
func buildMessages(agent Agent, task Task) (string, string) {
	var system strings.Builder
	fmt.Fprintf(&system, "You are %s.\n", agent.Role)
	fmt.Fprintf(&system, "Your goal: %s\n\n", agent.Goal)
	system.WriteString(strings.TrimSpace(agent.Backstory))

	user := fmt.Sprintf("%s\n\nExpected output:\n%s", strings.TrimSpace(task.Description), strings.TrimSpace(task.ExpectedOutput))
	return system.String(), user
}
