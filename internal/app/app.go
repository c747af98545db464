// Package app ties the analyzer, history, credential and AI capability
// together and holds the current session.
package app

import (
	"context"
	"errors"
	"sync"

	"ipscope/internal/ai"
	"ipscope/internal/credential"
	"ipscope/internal/geo"
	"ipscope/internal/history"
	"ipscope/internal/logger"
	"ipscope/internal/model"
)

var (
	ErrNoTrace            = errors.New("the current result has no connection trace; analyze your own IP first")
	ErrNoCountry          = errors.New("the current result has no country")
	ErrCredentialRequired = errors.New("an AI credential is required")
)

type Analyzer interface {
	Analyze(ctx context.Context, ip string) (*model.LogEntry, error)
}

// Credentials resolves the session credential.
type Credentials interface {
	Resolve(ctx context.Context) (string, credential.Status)
}

// Session is the state of the current interaction: the last successful
// analysis, if any.
type Session struct {
	mu     sync.RWMutex
	result *model.LogEntry
}

func (s *Session) Current() (*model.LogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.result != nil
}

func (s *Session) set(e *model.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = e
}

func (s *Session) Reset() {
	s.set(nil)
}

type App struct {
	analyzer Analyzer
	History  history.Store
	creds    Credentials
	ai       ai.Capability
	locale   string

	Session *Session
}

func New(a Analyzer, h history.Store, creds Credentials, capability ai.Capability, locale string) *App {
	return &App{
		analyzer: a,
		History:  h,
		creds:    creds,
		ai:       capability,
		locale:   locale,
		Session:  &Session{},
	}
}

// Analyze replaces the session result. The session is empty while the
// analysis runs and stays empty when it fails.
func (a *App) Analyze(ctx context.Context, ip string) (*model.LogEntry, error) {
	a.Session.Reset()

	entry, err := a.analyzer.Analyze(ctx, ip)
	if err != nil {
		return nil, err
	}
	a.Session.set(entry)
	return entry, nil
}

// Critique asks the AI service about the session's connection trace.
func (a *App) Critique(ctx context.Context) (*model.PrivacyAnalysis, error) {
	entry, ok := a.Session.Current()
	if !ok || entry.Result.Trace == nil {
		return nil, ErrNoTrace
	}
	key, err := a.key(ctx)
	if err != nil {
		return nil, err
	}

	res, err := a.ai.GenerateCritique(ctx, key, *entry.Result.Trace)
	if err != nil {
		logger.Log.Errorf("Privacy analysis failed: %v", err)
		return nil, err
	}
	return res, nil
}

// Postcard generates an image themed on the session's country.
func (a *App) Postcard(ctx context.Context) (*ai.Image, error) {
	entry, ok := a.Session.Current()
	if !ok || !entry.Result.Geo.OK() {
		return nil, ErrNoCountry
	}
	country := entry.Result.Geo.Country
	if country == "" && entry.Result.Geo.CountryCode != "" {
		country = geo.CountryName(entry.Result.Geo.CountryCode, a.locale)
	}
	if country == "" {
		return nil, ErrNoCountry
	}

	key, err := a.key(ctx)
	if err != nil {
		return nil, err
	}

	img, err := a.ai.GenerateImage(ctx, key, ai.PostcardPrompt(country))
	if err != nil {
		logger.Log.Errorf("Postcard generation failed: %v", err)
		return nil, err
	}
	return img, nil
}

func (a *App) key(ctx context.Context) (string, error) {
	key, status := a.creds.Resolve(ctx)
	if !status.Usable() {
		return "", ErrCredentialRequired
	}
	return key, nil
}
