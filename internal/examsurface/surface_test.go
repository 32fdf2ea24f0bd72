package examsurface

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"examguard/internal/integrity/enforcer"
	"examguard/internal/integrity/models"
	"examguard/internal/integrity/sensor"
	"examguard/internal/platform/logger"
	"examguard/internal/proctoring/media"
	dErrors "examguard/pkg/domain-errors"
)

type recordingSender struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingSender) Send(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSender) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type blur struct{}

func (blur) Name() string { return "background-blur" }

type fakeTrack struct {
	mu        sync.Mutex
	processor media.Processor
}

func (t *fakeTrack) Processor() media.Processor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processor
}

func (t *fakeTrack) StopProcessor(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processor = nil
	return nil
}

type fakeConnection struct {
	track  *fakeTrack
	mu     sync.Mutex
	closed bool
}

func (c *fakeConnection) LocalVideoTrack() (media.Track, error) { return c.track, nil }

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeConnector struct {
	mu    sync.Mutex
	conn  *fakeConnection
	err   error
	addr  string
	token string
	calls int
}

func (f *fakeConnector) Connect(_ context.Context, addr, token string) (media.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.addr, f.token = addr, token
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func (f *fakeConnector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCreds struct {
	tokenErr error
}

func (f fakeCreds) AccessToken(context.Context, string, string) (string, error) {
	return "media-token", f.tokenErr
}

func (fakeCreds) ServerAddress(context.Context) (string, error) {
	return "ws://media.example.test", nil
}

type SurfaceSuite struct {
	suite.Suite
	sender     *recordingSender
	visibility *sensor.Switch
	track      *fakeTrack
	conn       *fakeConnection
	connector  *fakeConnector
	notices    []string
	mu         sync.Mutex
}

func TestSurfaceSuite(t *testing.T) {
	suite.Run(t, new(SurfaceSuite))
}

func (s *SurfaceSuite) SetupTest() {
	s.sender = &recordingSender{}
	s.visibility = sensor.NewSwitch(true)
	s.track = &fakeTrack{}
	s.conn = &fakeConnection{track: s.track}
	s.connector = &fakeConnector{conn: s.conn}
	s.notices = nil
}

func (s *SurfaceSuite) surface(creds fakeCreds, opts ...Option) *Surface {
	opts = append([]Option{
		WithLogger(logger.Discard()),
		WithSecureOrigin(true),
		WithNotifier(NotifierFunc(func(msg string) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.notices = append(s.notices, msg)
		})),
		WithEnforcerOptions(enforcer.WithInterval(time.Hour)),
	}, opts...)
	return New(s.sender, sensor.Sources{Visibility: s.visibility}, creds, s.connector, opts...)
}

// run starts Run in the background and returns a stop function that
// cancels it and waits for teardown.
func (s *SurfaceSuite) run(surface *Surface, a Attempt) func() error {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- surface.Run(ctx, a) }()
	return func() error {
		cancel()
		select {
		case err := <-errc:
			return err
		case <-time.After(2 * time.Second):
			s.FailNow("Run did not return after cancel")
			return nil
		}
	}
}

func (s *SurfaceSuite) attempt() Attempt {
	return Attempt{ExamID: "exam-1", StudentID: "stu-1", ExamMode: true}
}

func (s *SurfaceSuite) TestInertOutsideExamMode() {
	err := s.surface(fakeCreds{}).Run(context.Background(), Attempt{ExamID: "exam-1", StudentID: "stu-1"})
	s.NoError(err)
	s.Empty(s.sender.types())
	s.Zero(s.connector.callCount())
	s.Zero(s.visibility.Subscribers())
}

func (s *SurfaceSuite) TestRejectsMissingIDs() {
	err := s.surface(fakeCreds{}).Run(context.Background(), Attempt{ExamID: "exam-1", ExamMode: true})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *SurfaceSuite) TestBracketsSessionAndTearsDown() {
	stop := s.run(s.surface(fakeCreds{}), s.attempt())

	s.Eventually(func() bool { return s.visibility.Subscribers() == 1 && s.connector.callCount() == 1 }, time.Second, 5*time.Millisecond)
	s.visibility.Set(false)
	s.Eventually(func() bool { return len(s.sender.types()) == 2 }, time.Second, 5*time.Millisecond)

	s.Require().NoError(stop())

	s.Equal([]models.EventType{
		models.EventProctoringStarted,
		models.EventFocusLost,
		models.EventProctoringStopped,
	}, s.sender.types())
	s.Equal("wss://media.example.test", s.connector.addr)
	s.Equal("media-token", s.connector.token)
	s.True(s.conn.isClosed())
	s.Zero(s.visibility.Subscribers())
	s.Empty(s.notices)
}

func (s *SurfaceSuite) TestEnforcerStripsProcessor() {
	s.track.processor = blur{}
	stop := s.run(s.surface(fakeCreds{}), s.attempt())

	s.Eventually(func() bool { return len(s.sender.types()) == 2 }, time.Second, 5*time.Millisecond)
	s.Require().NoError(stop())

	types := s.sender.types()
	s.Equal(models.EventVideoIntegrityBreach, types[1])
	s.Equal(models.EventProctoringStopped, types[len(types)-1])
	s.Nil(s.track.Processor())
}

func (s *SurfaceSuite) TestProctoringFailureDegradesToNotice() {
	stop := s.run(s.surface(fakeCreds{tokenErr: errors.New("token endpoint down")}), s.attempt())

	s.Eventually(func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.notices) == 1
	}, time.Second, 5*time.Millisecond)

	s.visibility.Set(false)
	s.Eventually(func() bool { return len(s.sender.types()) == 2 }, time.Second, 5*time.Millisecond)
	s.Require().NoError(stop())

	s.Equal(MonitoringUnavailable, s.notices[0])
	s.Zero(s.connector.callCount())
	s.Equal(models.EventProctoringStopped, s.sender.types()[2])
}

// runRecovering runs the attempt to completion and returns whatever Run
// panicked with.
func (s *SurfaceSuite) runRecovering(surface *Surface, a Attempt) (recovered any) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	defer func() { recovered = recover() }()
	_ = surface.Run(ctx, a)
	return nil
}

func (s *SurfaceSuite) TestPanicAfterConnectStillTearsDown() {
	explode := enforcer.Option(func(*enforcer.Enforcer) { panic("enforcer setup failed") })

	got := s.runRecovering(s.surface(fakeCreds{}, WithEnforcerOptions(explode)), s.attempt())

	s.Equal("enforcer setup failed", got)
	s.Equal(1, s.connector.callCount())
	s.True(s.conn.isClosed())
	s.Zero(s.visibility.Subscribers())
	s.Equal([]models.EventType{
		models.EventProctoringStarted,
		models.EventProctoringStopped,
	}, s.sender.types())
}

func (s *SurfaceSuite) TestPanickingNotifierStillDisarms() {
	notifier := WithNotifier(NotifierFunc(func(string) { panic("notice renderer crashed") }))

	got := s.runRecovering(s.surface(fakeCreds{tokenErr: errors.New("token endpoint down")}, notifier), s.attempt())

	s.Equal("notice renderer crashed", got)
	s.Zero(s.visibility.Subscribers())
	s.Equal(models.EventProctoringStopped, s.sender.types()[len(s.sender.types())-1])
}

func TestNotifierFunc(t *testing.T) {
	var got string
	NotifierFunc(func(m string) { got = m }).Notify("hello")
	require.Equal(t, "hello", got)
	assert.NotEmpty(t, MonitoringUnavailable)
}
