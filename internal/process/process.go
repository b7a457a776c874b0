// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具
//
// Package process wraps exec.Cmd for a single run of an FFmpeg command.

package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"
)

var (
	ErrNoBinary       = errors.New("no valid binary given")
	ErrAlreadyStarted = errors.New("process already started")
)

// Process represents one run of a command. It can be started once.
type Process interface {
	Status() Status
	Start() error
	Stop(wait bool) error
	IsRunning() bool
	// Done is closed after OnExit returned.
	Done() <-chan struct{}
	// ReturnCode is valid once Done is closed.
	ReturnCode() (ReturnCode, bool)
}

// Config for a process
type Config struct {
	Binary string
	Args   []string
	// Env for the child. nil starts it with an empty environment.
	Env          []string
	StaleTimeout time.Duration
	Parser       Parser
	Monitor      Monitor
	Logger       Logger

	OnStart       func()
	OnLog         func(line string)
	OnExit        func(rc ReturnCode)
	OnStateChange func(from, to string)
}

// Status of a process
type Status struct {
	State    string
	Order    string
	PID      int
	Duration time.Duration
	Time     time.Time
	CPU      float64
	Memory   uint64
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type stateType string

const (
	stateIdle      stateType = "idle"
	stateStarting  stateType = "starting"
	stateRunning   stateType = "running"
	stateFinishing stateType = "finishing"
	stateFinished  stateType = "finished"
	stateFailed    stateType = "failed"
	stateKilled    stateType = "killed"
)

func (s stateType) String() string { return string(s) }

func (s stateType) IsRunning() bool {
	return s == stateStarting || s == stateRunning || s == stateFinishing
}

// terminal states have no outgoing edges
var transitions = map[stateType][]stateType{
	stateIdle:      {stateStarting},
	stateStarting:  {stateRunning, stateFailed},
	stateRunning:   {stateFinishing, stateFinished, stateFailed, stateKilled},
	stateFinishing: {stateFinished, stateFailed, stateKilled},
}

const (
	orderStart = "start"
	orderStop  = "stop"
	orderStale = "stale"
)

type process struct {
	binary string
	args   []string
	env    []string
	cmd    *exec.Cmd
	stderr io.ReadCloser

	state struct {
		state  stateType
		time   time.Time
		order  string
		pid    int
		rc     ReturnCode
		done   bool
		lock   sync.Mutex
	}
	// serialises Start and Stop
	orderLock sync.Mutex

	parser Parser
	stale  struct {
		last    time.Time
		timeout time.Duration
		cancel  context.CancelFunc
		lock    sync.Mutex
	}
	killTimer     *time.Timer
	killTimerLock sync.Mutex
	logger        Logger
	monitor       Monitor
	callbacks     struct {
		onStart       func()
		onLog         func(line string)
		onExit        func(rc ReturnCode)
		onStateChange func(from, to string)
	}
	exitOnce sync.Once
	done     chan struct{}
}

// New creates a new process
func New(config Config) (Process, error) {
	if len(config.Binary) == 0 {
		return nil, ErrNoBinary
	}

	p := &process{
		binary:  config.Binary,
		args:    config.Args,
		env:     config.Env,
		parser:  config.Parser,
		logger:  config.Logger,
		monitor: config.Monitor,
		done:    make(chan struct{}),
	}

	if p.env == nil {
		p.env = []string{}
	}
	if p.parser == nil {
		p.parser = &nullParser{}
	}
	if p.logger == nil {
		p.logger = &nopLogger{}
	}
	if p.monitor == nil {
		p.monitor = NewNullMonitor()
	}

	p.state.state = stateIdle
	p.state.time = time.Now()
	p.stale.timeout = config.StaleTimeout
	p.callbacks.onStart = config.OnStart
	p.callbacks.onLog = config.OnLog
	p.callbacks.onExit = config.OnExit
	p.callbacks.onStateChange = config.OnStateChange

	return p, nil
}

func (p *process) setState(state stateType) error {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()

	prev := p.state.state
	allowed := false
	for _, next := range transitions[prev] {
		if next == state {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("can't change from %s to %s", prev, state)
	}

	p.state.state = state
	p.state.time = time.Now()
	if p.callbacks.onStateChange != nil {
		go p.callbacks.onStateChange(prev.String(), state.String())
	}
	return nil
}

func (p *process) getState() stateType {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	return p.state.state
}

func (p *process) Status() Status {
	cpu, memory := p.monitor.Current()

	p.state.lock.Lock()
	s := Status{
		State:    p.state.state.String(),
		PID:      p.state.pid,
		Duration: time.Since(p.state.time),
		Time:     p.state.time,
		Order:    p.state.order,
	}
	p.state.lock.Unlock()

	s.CPU = cpu
	s.Memory = memory
	return s
}

func (p *process) IsRunning() bool {
	return p.getState().IsRunning()
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) ReturnCode() (ReturnCode, bool) {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	return p.state.rc, p.state.done
}

func (p *process) Start() error {
	p.orderLock.Lock()
	p.state.lock.Lock()
	if p.state.order != "" {
		p.state.lock.Unlock()
		p.orderLock.Unlock()
		return ErrAlreadyStarted
	}
	p.state.order = orderStart
	p.state.lock.Unlock()

	err := p.start()
	p.orderLock.Unlock()

	if err != nil {
		// exit callbacks must not run under the order lock
		p.exit(ReturnCodeNoStatus)
	}
	return err
}

func (p *process) start() error {
	p.setState(stateStarting)

	var err error
	p.cmd = exec.Command(p.binary, p.args...)
	p.cmd.Env = p.env

	p.stderr, err = p.cmd.StderrPipe()
	if err != nil {
		p.setState(stateFailed)
		p.parser.Parse(err.Error())
		return err
	}

	if err := p.cmd.Start(); err != nil {
		p.setState(stateFailed)
		p.parser.Parse(err.Error())
		p.logger.Error("start %s: %v", p.binary, err)
		return err
	}

	pid := p.cmd.Process.Pid
	p.state.lock.Lock()
	p.state.pid = pid
	p.state.lock.Unlock()
	p.monitor.Start(pid)

	p.setState(stateRunning)

	if p.callbacks.onStart != nil {
		go p.callbacks.onStart()
	}

	go p.reader()

	if p.stale.timeout != 0 {
		p.stale.lock.Lock()
		ctx, cancel := context.WithCancel(context.Background())
		p.stale.cancel = cancel
		p.stale.lock.Unlock()
		go p.staler(ctx)
	}

	return nil
}

func (p *process) Stop(wait bool) error {
	return p.stop(orderStop, wait)
}

func (p *process) stop(reason string, wait bool) error {
	p.orderLock.Lock()
	defer p.orderLock.Unlock()

	p.state.lock.Lock()
	state := p.state.state
	if state == stateRunning {
		p.state.order = reason
	}
	p.state.lock.Unlock()

	if state != stateRunning {
		return nil
	}

	p.setState(stateFinishing)

	var err error
	if runtime.GOOS == "windows" {
		err = p.cmd.Process.Kill()
	} else {
		err = p.cmd.Process.Signal(os.Interrupt)
		if err != nil {
			err = p.cmd.Process.Kill()
		} else {
			p.killTimerLock.Lock()
			p.killTimer = time.AfterFunc(5*time.Second, func() {
				p.cmd.Process.Kill()
			})
			p.killTimerLock.Unlock()
		}
	}

	if err != nil {
		p.parser.Parse(err.Error())
		return err
	}

	if wait {
		<-p.done
	}
	return nil
}

func (p *process) staler(ctx context.Context) {
	p.stale.lock.Lock()
	p.stale.last = time.Now()
	p.stale.lock.Unlock()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			p.stale.lock.Lock()
			last := p.stale.last
			timeout := p.stale.timeout
			p.stale.lock.Unlock()

			if t.Sub(last) > timeout {
				p.logger.Error("%s: no progress for %s, stopping", p.binary, timeout)
				p.stop(orderStale, false)
				return
			}
		}
	}
}

func (p *process) reader() {
	scanner := bufio.NewScanner(p.stderr)
	scanner.Split(scanLine)

	p.parser.ResetStats()
	p.parser.ResetLog()

	for scanner.Scan() {
		line := scanner.Text()
		if n := p.parser.Parse(line); n != 0 {
			p.stale.lock.Lock()
			p.stale.last = time.Now()
			p.stale.lock.Unlock()
		}
		if p.callbacks.onLog != nil {
			p.callbacks.onLog(line)
		}
	}

	p.waiter()
}

func (p *process) waiter() {
	err := p.cmd.Wait()

	p.state.lock.Lock()
	order := p.state.order
	p.state.lock.Unlock()

	rc := exitReturnCode(err, order)
	switch {
	case rc.IsSuccess():
		p.setState(stateFinished)
	case rc.IsCancel():
		p.setState(stateKilled)
	default:
		p.setState(stateFailed)
	}

	p.monitor.Stop()

	p.killTimerLock.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
		p.killTimer = nil
	}
	p.killTimerLock.Unlock()

	p.stale.lock.Lock()
	if p.stale.cancel != nil {
		p.stale.cancel()
		p.stale.cancel = nil
	}
	p.stale.lock.Unlock()

	p.exit(rc)
}

// exit records rc and fires OnExit exactly once.
func (p *process) exit(rc ReturnCode) {
	p.exitOnce.Do(func() {
		p.state.lock.Lock()
		p.state.rc = rc
		p.state.done = true
		p.state.lock.Unlock()

		if p.callbacks.onExit != nil {
			p.callbacks.onExit(rc)
		}
		close(p.done)
	})
}

// exitReturnCode classifies the result of cmd.Wait. reason is the stop order
// that preceded the exit, if any.
func exitReturnCode(err error, reason string) ReturnCode {
	if err == nil {
		return ReturnCodeSuccess
	}

	code := int(ReturnCodeNoStatus)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}

	switch {
	case reason == orderStale:
		// a stalled run is a failure even though we interrupted it
		if ReturnCode(code) == ReturnCodeCancel {
			return ReturnCodeNoStatus
		}
		return ReturnCode(code)
	case ReturnCode(code) == ReturnCodeCancel:
		return ReturnCodeCancel
	case ReturnCode(code) == ReturnCodeNoStatus && reason == orderStop:
		return ReturnCodeCancel
	default:
		return ReturnCode(code)
	}
}

// scanLine splits on \n and \r so ffmpeg's carriage-return status updates
// arrive one by one.
func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type nullParser struct{}

func (p *nullParser) Parse(line string) uint64 { return 1 }
func (p *nullParser) ResetStats()              {}
func (p *nullParser) ResetLog()                {}
func (p *nullParser) Log() []Line              { return nil }

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
