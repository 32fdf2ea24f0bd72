package examsurface_test

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"examguard/internal/examsurface"
	"examguard/internal/integrity/reporter"
	"examguard/internal/integrity/sensor"
	"examguard/internal/proctoring/client"
	"examguard/internal/proctoring/media"
)

// sdkConnector stands in for the media server SDK binding the exam client
// ships with.
type sdkConnector struct{}

func (sdkConnector) Connect(context.Context, string, string) (media.Connection, error) {
	return nil, errors.New("media sdk not linked")
}

// The exam client embeds the surface as a library: browser events drive
// the Switch sources, and events flow through the async reporter to the
// collection endpoint.
func Example() {
	api := "https://examguard.example.edu"

	events := reporter.NewAsync(reporter.NewClient(reporter.ClientConfig{BaseURL: api}),
		reporter.WithSendTimeout(5*time.Second))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = events.Close(ctx)
	}()

	visibility, focus, fullscreen := sensor.NewSwitch(true), sensor.NewSwitch(true), sensor.NewSwitch(true)
	surface := examsurface.New(events,
		sensor.Sources{Visibility: visibility, Focus: focus, Fullscreen: fullscreen},
		client.NewCredentials(client.Config{BaseURL: api}),
		sdkConnector{},
		examsurface.WithSecureOrigin(true),
		examsurface.WithNotifier(examsurface.NotifierFunc(func(msg string) { fmt.Println(msg) })),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the host page calls visibility.Set, focus.Set and fullscreen.Set as
	// the browser reports changes
	_ = surface.Run(ctx, examsurface.Attempt{ExamID: "exam-42", StudentID: "stu-7", ExamMode: true})
}
