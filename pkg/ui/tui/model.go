package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"igdl/pkg/instagram"
	"igdl/pkg/scraper"
)

// Job is a running download as seen by the window
type Job interface {
	Events() <-chan scraper.Event
	Cancel()
}

// StartFunc launches a background download
type StartFunc func(ctx context.Context, req scraper.Request) Job

// FromScraper starts jobs as scraper tasks
func FromScraper(s *scraper.Scraper) StartFunc {
	return func(ctx context.Context, req scraper.Request) Job {
		return s.Start(ctx, req)
	}
}

type phase int

const (
	phaseForm phase = iota
	phaseRunning
	phaseDone
)

// form field indexes; fieldMode is the post/profile toggle
const (
	fieldUsername = iota
	fieldPassword
	fieldURL
	fieldMaxPosts
	fieldMode
	fieldCount
)

// Defaults pre-fill the form
type Defaults struct {
	Username  string
	Password  string
	URL       string
	Profile   bool
	// MaxPosts pre-fills the limit field; nil leaves it blank (no limit)
	MaxPosts  *int
	OutputDir string
}

// LogMessage is one line of the log pane
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the bubbletea model of the downloader window
type Model struct {
	ctx   context.Context
	start StartFunc

	inputs    []textinput.Model
	focus     int
	profile   bool
	outputDir string
	formErr   string

	spinner  spinner.Model
	progress progress.Model

	phase    phase
	task     Job
	limit    int
	started  time.Time
	finished time.Time

	downloaded int
	skipped    int
	failed     int
	summary    *scraper.Summary
	err        error

	logs    []LogMessage
	maxLogs int

	width  int
	height int
}

// NewModel builds the form; start runs submitted jobs
func NewModel(ctx context.Context, start StartFunc, d Defaults) Model {
	inputs := make([]textinput.Model, fieldMode)

	inputs[fieldUsername] = textinput.New()
	inputs[fieldUsername].Placeholder = "instagram username"
	inputs[fieldUsername].SetValue(d.Username)

	inputs[fieldPassword] = textinput.New()
	inputs[fieldPassword].Placeholder = "password"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'
	inputs[fieldPassword].SetValue(d.Password)

	inputs[fieldURL] = textinput.New()
	inputs[fieldURL].Placeholder = "https://www.instagram.com/username/ or /p/<code>/"
	inputs[fieldURL].SetValue(d.URL)

	inputs[fieldMaxPosts] = textinput.New()
	inputs[fieldMaxPosts].Placeholder = "blank = all"
	inputs[fieldMaxPosts].CharLimit = 6
	if d.MaxPosts != nil && *d.MaxPosts >= 0 {
		inputs[fieldMaxPosts].SetValue(strconv.Itoa(*d.MaxPosts))
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = successStyle

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	m := Model{
		ctx:       ctx,
		start:     start,
		inputs:    inputs,
		profile:   d.Profile,
		outputDir: d.OutputDir,
		spinner:   s,
		progress:  p,
		maxLogs:   200,
	}

	first := fieldUsername
	if d.Username != "" && d.Password != "" {
		first = fieldURL
	}
	m.setFocus(first)
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) setFocus(i int) {
	m.focus = (i + fieldCount) % fieldCount
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

// request validates the form
func (m *Model) request() (scraper.Request, error) {
	req := scraper.Request{
		Username:  strings.TrimSpace(m.inputs[fieldUsername].Value()),
		Password:  m.inputs[fieldPassword].Value(),
		URL:       strings.TrimSpace(m.inputs[fieldURL].Value()),
		Profile:   m.profile,
		OutputDir: m.outputDir,
	}

	switch {
	case req.Username == "" || req.Password == "":
		return req, errors.New("username and password are required")
	case req.URL == "":
		return req, errors.New("a profile or post URL is required")
	}

	limit := instagram.NoLimit
	if raw := strings.TrimSpace(m.inputs[fieldMaxPosts].Value()); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return req, errors.New("max posts must be a non-negative number")
		}
		limit = n
	}
	req.MaxPosts = &limit
	return req, nil
}

func (m *Model) addLog(level, message string) {
	m.logs = append(m.logs, LogMessage{Time: time.Now(), Level: level, Message: message})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

// fraction is the progress bar position, or -1 when the total is unknown
func (m Model) fraction() float64 {
	if m.limit <= 0 {
		return -1
	}
	f := float64(m.downloaded+m.skipped+m.failed) / float64(m.limit)
	if f > 1 {
		f = 1
	}
	return f
}

// Logs returns the log pane contents
func (m Model) Logs() []LogMessage {
	return m.logs
}

// Summary returns the finished task's summary and error
func (m Model) Summary() (*scraper.Summary, error) {
	return m.summary, m.err
}
