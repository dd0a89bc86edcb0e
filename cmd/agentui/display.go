// ABOUTME: Terminal rendering of conversation state, notices, and transcript export
// ABOUTME: Streams the unseen portion of the pending agent message as snapshots arrive

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dougss/agno-agent-ui/internal/chat"
	"github.com/dougss/agno-agent-ui/internal/render"
)

// display tracks what has already been printed for the active turn so each
// snapshot only emits the unseen remainder.
type display struct {
	ui UIConfig

	printedContent int
	printedTools   int
	printedAudio   int

	errColor  *color.Color
	toolColor *color.Color
	dimColor  *color.Color
	userColor *color.Color
}

func newDisplay(ui UIConfig) *display {
	color.NoColor = color.NoColor || !ui.Color
	return &display{
		ui:        ui,
		errColor:  color.New(color.FgRed),
		toolColor: color.New(color.FgYellow),
		dimColor:  color.New(color.Faint),
		userColor: color.New(color.FgBlue),
	}
}

// beginTurn resets per-turn progress tracking.
func (d *display) beginTurn() {
	d.printedContent = 0
	d.printedTools = 0
	d.printedAudio = 0
}

// renderProgress prints whatever the snapshot added since the last one.
func (d *display) renderProgress(s chat.State) {
	if len(s.Messages) == 0 {
		return
	}
	agent := s.Messages[len(s.Messages)-1]
	if agent.Role != chat.RoleAgent {
		return
	}

	if d.ui.ToolCalls {
		for ; d.printedTools < len(agent.ToolCalls); d.printedTools++ {
			tc := agent.ToolCalls[d.printedTools]
			d.toolColor.Printf("[tool] %s\n", tc.ToolName)
		}
	}

	if len(agent.Content) > d.printedContent {
		fmt.Print(agent.Content[d.printedContent:])
		d.printedContent = len(agent.Content)
	}

	if agent.ResponseAudio != nil && len(agent.ResponseAudio.Transcript) > d.printedAudio {
		fmt.Print(agent.ResponseAudio.Transcript[d.printedAudio:])
		d.printedAudio = len(agent.ResponseAudio.Transcript)
	}

	switch s.Phase {
	case chat.PhaseCompleted:
		fmt.Println()
	case chat.PhaseErrored:
		if d.printedContent > 0 {
			fmt.Println()
		}
		d.errColor.Printf("[error] %s\n", s.ErrorMessage)
	}
}

// renderTranscript prints a full loaded transcript.
func (d *display) renderTranscript(messages []chat.Message) {
	for _, m := range messages {
		switch m.Role {
		case chat.RoleUser:
			d.userColor.Printf("you> ")
			fmt.Println(m.Content)
		case chat.RoleAgent:
			if d.ui.ToolCalls {
				for _, tc := range m.ToolCalls {
					d.toolColor.Printf("[tool] %s\n", tc.ToolName)
				}
			}
			fmt.Println(m.Content)
			if m.StreamingError {
				d.errColor.Println("[error] turn failed")
			}
		}
		fmt.Println()
	}
}

// notify implements the client's user-notice surface on the terminal.
type terminalNotifier struct {
	errColor *color.Color
}

func (n terminalNotifier) Notify(level slog.Level, message string) {
	if level >= slog.LevelError {
		n.errColor.Printf("[notice] %s\n", message)
		return
	}
	fmt.Printf("[notice] %s\n", message)
}

// transcriptMarkdown renders a conversation to a markdown document.
func transcriptMarkdown(messages []chat.Message, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation with %s\n\n", target)
	fmt.Fprintf(&b, "_Exported %s_\n\n", time.Now().Format(time.RFC1123))

	for _, m := range messages {
		switch m.Role {
		case chat.RoleUser:
			b.WriteString("## You\n\n")
		case chat.RoleAgent:
			b.WriteString("## Agent\n\n")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&b, "- tool: `%s`\n", tc.ToolName)
		}
		if len(m.ToolCalls) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// exportHTML writes the conversation as a standalone HTML document.
func exportHTML(messages []chat.Message, target, path string, ui UIConfig) error {
	if !filepath.IsAbs(path) && ui.ExportDir != "" {
		path = filepath.Join(ui.ExportDir, path)
	}

	body, err := render.HTML(transcriptMarkdown(messages, target))
	if err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}

	doc := "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Conversation</title></head><body>\n" +
		body + "</body></html>\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
