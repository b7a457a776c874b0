package job

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/videoeditor/internal/editor"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/parse"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/skills"
	"github.com/ZSC714725/videoeditor/internal/process"
)

type run struct {
	args     []string
	onLog    func(string)
	onResult func(string, process.ReturnCode)
}

// fakeFFmpeg implements ffmpeg.FFmpeg; tests drive runs by hand.
type fakeFFmpeg struct {
	mu        sync.Mutex
	runs      map[string]*run
	order     []string
	cancelled []string
	removed   []string

	skills     skills.Skills
	frames     int
	framesErr  error
	probed     []string
	blockInput string
}

func newFakeFFmpeg() *fakeFFmpeg {
	f := &fakeFFmpeg{runs: map[string]*run{}}
	f.skills.Filters = []skills.Filter{{Id: "crop"}}
	f.skills.Codecs.Video = []skills.Codec{{Id: "h264", Encoders: []string{"libx264"}}}
	return f
}

func (f *fakeFFmpeg) ExecuteAsync(args []string, onLog func(string), onResult func(string, process.ReturnCode)) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "exec-" + string(rune('a'+len(f.order)))
	f.runs[id] = &run{args: args, onLog: onLog, onResult: onResult}
	f.order = append(f.order, id)
	return id
}

func (f *fakeFFmpeg) last() (string, *run) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.order[len(f.order)-1]
	return id, f.runs[id]
}

func (f *fakeFFmpeg) finish(lines []string, rc process.ReturnCode) {
	id, r := f.last()
	for _, l := range lines {
		r.onLog(l)
	}
	r.onResult(id, rc)
}

func (f *fakeFFmpeg) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[id]; !ok {
		return ffmpeg.ErrUnknownExecution
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeFFmpeg) Remove(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[id]; !ok {
		return ffmpeg.ErrUnknownExecution
	}
	delete(f.runs, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeFFmpeg) Status(id string) (process.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[id]; !ok {
		return process.Status{}, ffmpeg.ErrUnknownExecution
	}
	return process.Status{State: "running"}, nil
}

func (f *fakeFFmpeg) Progress(string) (parse.Progress, error) {
	return parse.Progress{Frame: 42}, nil
}

func (f *fakeFFmpeg) Log(id string) ([]process.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[id]; !ok {
		return nil, ffmpeg.ErrUnknownExecution
	}
	return []process.Line{{Data: "frame=  42"}}, nil
}

func (f *fakeFFmpeg) LastCommandOutput(string) []string { return []string{"boom"} }

func (f *fakeFFmpeg) FrameCount(_ context.Context, path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, path)
	return f.frames, f.framesErr
}

func (f *fakeFFmpeg) ValidateInput(address string) bool {
	return address != "" && address != f.blockInput
}
func (f *fakeFFmpeg) ValidateOutput(address string) bool { return address != "" }
func (f *fakeFFmpeg) Skills() skills.Skills              { return f.skills }
func (f *fakeFFmpeg) ReloadSkills() error                { return nil }

// mockPublisher implements storage.Publisher for testing.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, key, localPath string) (string, error) {
	args := m.Called(ctx, key, localPath)
	return args.String(0), args.Error(1)
}

func TestService_CropLifecycle(t *testing.T) {
	ff := newFakeFFmpeg()
	ff.frames = 200
	svc := NewService(Config{FFmpeg: ff})

	j, err := svc.Crop(context.Background(), editor.CropRequest{
		Input: "in.mp4", Output: "/tmp/out.mp4", OutputURI: "content://42", Width: 100, Height: 50,
	}, Options{Reference: "album"})
	require.NoError(t, err)

	assert.Equal(t, StateStarted, j.State)
	assert.Equal(t, "exec-a", j.ExecutionID)
	assert.Equal(t, 200, j.FrameCount)
	assert.Equal(t, editor.KindCrop, j.Kind)
	assert.Equal(t, []string{"in.mp4"}, ff.probed)
	assert.Contains(t, j.Command, "crop=100:50:0:0")

	_, r := ff.last()
	r.onLog("frame=  42 fps=10")

	got, err := svc.Get(j.ID)
	require.NoError(t, err)
	assert.InDelta(t, 21.0, got.Progress, 1e-9)

	ff.finish(nil, process.ReturnCodeSuccess)

	got, err = svc.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, got.State)
	assert.Equal(t, "content://42", got.Result)
	assert.Empty(t, got.Error)

	assert.Len(t, svc.List(nil, "album"), 1)
	assert.Empty(t, svc.List(nil, "other"))

	exec, err := svc.Exec(j.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), exec.Progress.Frame)

	lines, err := svc.Report(j.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestService_TrimDoesNotProbe(t *testing.T) {
	ff := newFakeFFmpeg()
	svc := NewService(Config{FFmpeg: ff})

	j, err := svc.Trim(context.Background(), editor.TrimRequest{Input: "in.mp4", Output: "out.mp4", Start: "1", End: "2"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, ff.probed)
	assert.Zero(t, j.FrameCount)

	ff.finish([]string{"frame=  42"}, process.ReturnCode(1))

	got, err := svc.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, editor.GenericErrorMessage, got.Error)
	assert.Zero(t, got.Progress)
}

func TestService_ProbeFailureLeavesFrameCountZero(t *testing.T) {
	ff := newFakeFFmpeg()
	ff.framesErr = errors.New("no video stream")
	svc := NewService(Config{FFmpeg: ff})

	j, err := svc.Compress(context.Background(), editor.CompressRequest{Input: "in.mp4", Output: "out.mp4", Width: "640", Height: "-2"}, Options{})
	require.NoError(t, err)
	assert.Zero(t, j.FrameCount)

	ff.finish([]string{"frame=  42"}, process.ReturnCodeSuccess)
	got, _ := svc.Get(j.ID)
	assert.Zero(t, got.Progress)
	assert.Equal(t, "out.mp4", got.Result)
}

func TestService_SuppliedFrameCountSkipsProbe(t *testing.T) {
	ff := newFakeFFmpeg()
	svc := NewService(Config{FFmpeg: ff})

	_, err := svc.Crop(context.Background(), editor.CropRequest{Input: "in.mp4", Output: "out.mp4", FrameCount: 10}, Options{})
	require.NoError(t, err)
	assert.Empty(t, ff.probed)
}

func TestService_Rejects(t *testing.T) {
	ff := newFakeFFmpeg()
	ff.blockInput = "/etc/passwd"
	svc := NewService(Config{FFmpeg: ff})
	ctx := context.Background()

	_, err := svc.Trim(ctx, editor.TrimRequest{Input: "/etc/passwd", Output: "out.mp4"}, Options{})
	assert.ErrorIs(t, err, ErrInvalidInputAddress)

	_, err = svc.Trim(ctx, editor.TrimRequest{Input: "in.mp4"}, Options{})
	assert.ErrorIs(t, err, ErrInvalidOutputAddress)

	_, err = svc.Trim(ctx, editor.TrimRequest{Input: "in.mp4", Output: "out.mp4"}, Options{Publish: true})
	assert.ErrorIs(t, err, ErrUnsupported)

	ff.skills = skills.Skills{}
	_, err = svc.Crop(ctx, editor.CropRequest{Input: "in.mp4", Output: "out.mp4"}, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = svc.Compress(ctx, editor.CompressRequest{Input: "in.mp4", Output: "out.mp4"}, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.Empty(t, ff.order)
	assert.Empty(t, svc.List(nil, ""))
}

func TestService_Cancel(t *testing.T) {
	ff := newFakeFFmpeg()
	svc := NewService(Config{FFmpeg: ff})

	j, err := svc.Trim(context.Background(), editor.TrimRequest{Input: "in.mp4", Output: "out.mp4"}, Options{})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(j.ID))
	assert.Equal(t, []string{"exec-a"}, ff.cancelled)

	ff.finish(nil, process.ReturnCodeCancel)
	got, _ := svc.Get(j.ID)
	assert.Equal(t, StateCancelled, got.State)

	assert.ErrorIs(t, svc.Cancel(j.ID), ErrNotRunning)
	assert.ErrorIs(t, svc.Cancel("nope"), ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	ff := newFakeFFmpeg()
	svc := NewService(Config{FFmpeg: ff})

	j, err := svc.Trim(context.Background(), editor.TrimRequest{Input: "in.mp4", Output: "out.mp4"}, Options{})
	require.NoError(t, err)
	_, r := ff.last()

	require.NoError(t, svc.Delete(j.ID))
	assert.Equal(t, []string{"exec-a"}, ff.removed)

	_, err = svc.Get(j.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Report(j.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(j.ID), ErrNotFound)

	// late callbacks of a deleted job are dropped
	assert.NotPanics(t, func() {
		r.onResult("exec-a", process.ReturnCodeSuccess)
	})
}

func TestService_Publish(t *testing.T) {
	ff := newFakeFFmpeg()
	pub := &mockPublisher{}
	svc := NewService(Config{FFmpeg: ff, Publisher: pub})

	j, err := svc.Trim(context.Background(), editor.TrimRequest{Input: "in.mp4", Output: "/data/out.mp4"}, Options{Publish: true})
	require.NoError(t, err)

	pub.On("Publish", mock.Anything, j.ID+"/out.mp4", "/data/out.mp4").
		Return("https://clips.s3.us-east-1.amazonaws.com/"+j.ID+"/out.mp4", nil).Once()

	ff.finish(nil, process.ReturnCodeSuccess)
	svc.Wait()

	got, err := svc.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, "/data/out.mp4", got.Result)
	assert.Equal(t, "https://clips.s3.us-east-1.amazonaws.com/"+j.ID+"/out.mp4", got.PublishedURL)
	pub.AssertExpectations(t)
}

func TestService_PublishFailure(t *testing.T) {
	ff := newFakeFFmpeg()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied"))
	svc := NewService(Config{FFmpeg: ff, Publisher: pub})

	j, err := svc.Trim(context.Background(), editor.TrimRequest{Input: "in.mp4", Output: "out.mp4"}, Options{Publish: true})
	require.NoError(t, err)
	ff.finish(nil, process.ReturnCodeSuccess)
	svc.Wait()

	got, _ := svc.Get(j.ID)
	assert.Equal(t, StateSucceeded, got.State)
	assert.Equal(t, "access denied", got.PublishError)
	assert.Empty(t, got.PublishedURL)
}

func TestService_NoPublishOnFailure(t *testing.T) {
	ff := newFakeFFmpeg()
	pub := &mockPublisher{}
	svc := NewService(Config{FFmpeg: ff, Publisher: pub})

	_, err := svc.Trim(context.Background(), editor.TrimRequest{Input: "in.mp4", Output: "out.mp4"}, Options{Publish: true})
	require.NoError(t, err)
	ff.finish(nil, process.ReturnCode(1))
	svc.Wait()

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
