package watch

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/tracker"
)

// Run shows the view until the user quits. Stream updates and the elapsed
// clock are forwarded into the program as messages.
func Run(tr *tracker.Tracker, opts Options, progOpts ...tea.ProgramOption) error {
	p := tea.NewProgram(New(tr, opts), progOpts...)

	// Program.Send blocks until the event loop runs, so the subscriptions
	// are attached from a separate goroutine.
	detach := make(chan func(), 1)
	go func() {
		unsubs := []func(){
			tr.Current().Subscribe(func(e *model.Entry) { p.Send(currentMsg{entry: e}) }),
			tr.Entries().Subscribe(func(es []model.Entry) { p.Send(entriesMsg(es)) }),
			tr.DaySession().Subscribe(func(s *model.DaySession) { p.Send(sessionMsg{session: s}) }),
			tr.WatchElapsed(time.Second, func(d time.Duration) { p.Send(elapsedMsg(d)) }),
		}
		detach <- func() {
			for _, u := range unsubs {
				u()
			}
		}
	}()

	_, err := p.Run()
	(<-detach)()
	return err
}
