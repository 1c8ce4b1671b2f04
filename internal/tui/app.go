// Package tui provides the interactive terminal chat view for
// Sentinel. It renders the orchestrator's event stream and never
// mutates conversation state itself.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/agent"
	"github.com/tornikegomareli/Sentinel/internal/conversation"
)

// RunRecorder is called after every finished run; the CLI wires the
// ledger through it.
type RunRecorder func(result *agent.RunResult)

// App is the chat TUI. One conversation lives for the duration of the
// session; each submitted line becomes one orchestrator run.
type App struct {
	app    *tview.Application
	chat   *tview.TextView
	input  *tview.InputField
	header *tview.TextView
	footer *tview.TextView

	orc      *agent.Orchestrator
	conv     *conversation.Conversation
	model    string
	recorder RunRecorder
	logger   *zap.Logger

	mu        sync.Mutex
	running   bool
	cancelRun context.CancelFunc
	streaming bool // a partial answer line is open
	chunked   bool // this run delivered answer chunks
}

// NewApp creates the chat application.
func NewApp(orc *agent.Orchestrator, model string, recorder RunRecorder, logger *zap.Logger) *App {
	a := &App{
		app:      tview.NewApplication(),
		orc:      orc,
		conv:     conversation.New(),
		model:    model,
		recorder: recorder,
		logger:   logger,
	}

	// -- Header --
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)
	a.header.SetText(fmt.Sprintf(" [::b]Sentinel[::-] | model: %s", model))

	// -- Chat transcript --
	a.chat = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true).
		SetChangedFunc(func() { a.app.Draw() })
	a.chat.SetBorderPadding(0, 0, 1, 1)

	// -- Input --
	a.input = tview.NewInputField().
		SetLabel(" > ").
		SetLabelColor(tcell.ColorYellow).
		SetFieldBackgroundColor(tcell.ColorBlack)
	a.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(a.input.GetText())
		if text == "" {
			return
		}
		a.input.SetText("")
		a.submit(text)
	})

	// -- Footer --
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)
	a.setIdleFooter()

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.chat, 0, 1, false).
		AddItem(a.input, 1, 0, true).
		AddItem(a.footer, 1, 0, false)

	a.setupKeyBindings()
	a.app.SetRoot(layout, true).SetFocus(a.input)

	return a
}

// Run starts the TUI event loop.
func (a *App) Run() error {
	return a.app.Run()
}

func (a *App) setupKeyBindings() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape:
			// Cancel the in-flight run, if any.
			a.mu.Lock()
			cancel := a.cancelRun
			a.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			return nil
		case tcell.KeyCtrlC:
			a.app.Stop()
			return nil
		}
		return event
	})
}

// submit handles one entered line: local commands directly, anything
// else as a new orchestrator run.
func (a *App) submit(text string) {
	switch text {
	case "/quit", "/exit":
		a.app.Stop()
		return
	case "/clear":
		a.conv = conversation.New()
		a.chat.SetText("")
		a.appendLine("[gray]conversation cleared[-]")
		return
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		a.appendLine("[red]a run is already in progress; press Esc to cancel it[-]")
		return
	}
	a.running = true
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelRun = cancel
	a.mu.Unlock()

	a.appendLine(fmt.Sprintf("[yellow::b]you>[-::-] %s", tview.Escape(text)))
	a.footer.SetText(" [yellow]thinking...[-]  <esc> cancel")

	go func() {
		defer cancel()
		result, err := a.orc.Run(ctx, a.conv, text, a.sink())

		a.mu.Lock()
		a.running = false
		a.cancelRun = nil
		a.mu.Unlock()

		if a.recorder != nil && result != nil {
			a.recorder(result)
		}

		a.app.QueueUpdateDraw(func() {
			if err != nil && result != nil && result.Stop == agent.StopTransportError {
				a.appendLine(fmt.Sprintf("[red]%v[-]", err))
			}
			if result != nil {
				a.footer.SetText(fmt.Sprintf(" rounds: %d | tool calls: %d | tokens: %d in / %d out",
					result.Rounds, result.ToolCalls,
					result.Usage.InputTokens, result.Usage.OutputTokens))
			} else {
				a.setIdleFooter()
			}
		})
	}()
}

// sink renders orchestrator events into the chat view. Events arrive
// on the run goroutine; all widget updates go through QueueUpdateDraw.
func (a *App) sink() agent.Sink {
	return func(e agent.Event) {
		a.app.QueueUpdateDraw(func() {
			switch e.Type {
			case agent.EventAnswerChunk:
				a.appendChunk(e.Text)
			case agent.EventToolCallStarted:
				a.endChunk()
				a.appendLine(fmt.Sprintf("[blue]⚙ %s[-] [gray]%s[-]",
					e.Call.Name, tview.Escape(compactArgs(e.Call.Args))))
			case agent.EventToolCallFinished:
				if e.Result.Outcome.Failed() {
					a.appendLine(fmt.Sprintf("[red]  ✗ %s: %s[-]",
						e.Result.Outcome.Kind, tview.Escape(e.Result.Outcome.Message)))
				} else {
					a.appendLine(fmt.Sprintf("[green]  ✓ %s[-]", e.Result.Name))
				}
			case agent.EventFinalAnswer:
				a.endChunk()
				if !a.chunked {
					a.appendLine(fmt.Sprintf("[white::b]sentinel>[-::-] %s", tview.Escape(e.Text)))
				}
				a.chunked = false
			case agent.EventAborted:
				a.endChunk()
				a.chunked = false
				a.appendLine(fmt.Sprintf("[red::b]%s[-::-]", tview.Escape(e.Text)))
			}
			a.chat.ScrollToEnd()
		})
	}
}

// appendChunk streams a partial answer fragment inline.
func (a *App) appendChunk(text string) {
	if !a.streaming {
		a.streaming = true
		a.chunked = true
		fmt.Fprintf(a.chat, "[white::b]sentinel>[-::-] ")
	}
	fmt.Fprint(a.chat, tview.Escape(text))
}

// endChunk terminates an in-progress streamed line.
func (a *App) endChunk() {
	if a.streaming {
		a.streaming = false
		fmt.Fprintln(a.chat)
	}
}

func (a *App) appendLine(markup string) {
	fmt.Fprintln(a.chat, markup)
}

func (a *App) setIdleFooter() {
	a.footer.SetText(" [yellow]<enter>[white]Send  [yellow]<esc>[white]Cancel run  [yellow]/clear[white] Reset  [yellow]/quit[white] Exit")
}

// compactArgs renders tool arguments on one short line.
func compactArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	joined := strings.Join(parts, " ")
	if len(joined) > 80 {
		joined = joined[:80] + "..."
	}
	return joined
}
