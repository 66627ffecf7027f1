package terminal

import (
	"context"
	"errors"
	"io"
	"sync"

	"ollama-chat/internal/session"
)

// LineUI drives a session from a line-oriented reader, printing every new
// message as the session announces it.
type LineUI struct {
	mgr     *session.Manager
	display *Display

	mu      sync.Mutex
	printed int
	last    session.Message
}

func NewLineUI(mgr *session.Manager, display *Display) *LineUI {
	return &LineUI{mgr: mgr, display: display}
}

// Run reads messages and commands from in until EOF, /quit or ctx is done.
// It waits for outstanding replies before returning on EOF or /quit.
func (l *LineUI) Run(ctx context.Context, in io.Reader) error {
	unsubscribe := l.mgr.Subscribe(l.onChange)
	defer unsubscribe()

	l.display.PrintWelcome(l.mgr.Config())
	l.printNew()

	type input struct {
		text string
		err  error
	}
	lines := make(chan input)
	reader := NewInputReader(in)
	go func() {
		for {
			text, err := reader.ReadMessage()
			select {
			case lines <- input{text, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var pending *session.Confirmation
	for {
		var next input
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next = <-lines:
		}

		if next.err != nil {
			l.mgr.Wait()
			l.display.PrintGoodbye()
			if errors.Is(next.err, io.EOF) {
				return nil
			}
			return next.err
		}

		if pending != nil {
			l.answer(*pending, next.text)
			pending = nil
			continue
		}

		if cmd, ok := ParseCommand(next.text); ok {
			res, err := Execute(ctx, l.mgr, cmd)
			if err != nil {
				l.display.PrintError(err)
				continue
			}
			if res.Quit {
				l.mgr.Wait()
				l.display.PrintGoodbye()
				return nil
			}
			if res.Confirm != nil {
				pending = res.Confirm
				l.display.PrintConfirm(res.Confirm.Prompt)
				continue
			}
			switch {
			case res.Changed:
				l.display.PrintSuccess(res.Output)
			case res.Output != "":
				l.display.PrintInfo(res.Output)
			}
			continue
		}

		l.mgr.SetInput(next.text)
		l.mgr.HandleSubmitKey(&session.KeyEvent{Key: session.KeyEnter})
	}
}

func (l *LineUI) answer(c session.Confirmation, text string) {
	var err error
	if IsAffirmative(text) {
		err = l.mgr.Confirm(c.Token)
	} else {
		err = l.mgr.Cancel(c.Token)
		if err == nil {
			l.display.PrintInfo("Annulé.")
		}
	}
	if err != nil {
		l.display.PrintError(err)
	}
}

func (l *LineUI) onChange(c session.Change) {
	if c.Has(session.ChangeMessages) {
		l.printNew()
	}
	if c.Has(session.ChangeHistory) && l.mgr.HistoryVisible() {
		l.display.PrintHistory(l.mgr.History())
	}
}

// printNew prints the messages appended since the last call. When the log
// was cleared it starts over from the first message.
func (l *LineUI) printNew() {
	msgs := l.mgr.Messages()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.printed > len(msgs) || (l.printed > 0 && msgs[l.printed-1] != l.last) {
		l.printed = 0
	}
	for _, msg := range msgs[l.printed:] {
		l.display.PrintMessage(msg)
	}
	l.printed = len(msgs)
	if l.printed > 0 {
		l.last = msgs[l.printed-1]
	}
}
