package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ownck/internal/driver"
	"ownck/internal/ui"
)

type dirOutcome struct {
	result *driver.DirResult
	err    error
}

// checkDirWithUI runs CheckDir while a progress view renders its events.
func checkDirWithUI(ctx context.Context, title, dir string, opts driver.Options) (*driver.DirResult, error) {
	files, err := driver.ListFiles(dir, opts)
	if err != nil {
		return nil, err
	}
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan dirOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.CheckDir(ctx, dir, optsCopy)
		outcomeCh <- dirOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// после ctrl+c модель больше не читает канал, досливаем его
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
