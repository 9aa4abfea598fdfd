package main

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/example/interview-scheduler/internal/interview"
)

// templateLinkProvider issues https://<host>/<uuid> conference links.
type templateLinkProvider struct {
	host  string
	newID func() string
}

func newTemplateLinkProvider(host string) *templateLinkProvider {
	return &templateLinkProvider{host: strings.Trim(strings.TrimSpace(host), "/"), newID: uuid.NewString}
}

func (p *templateLinkProvider) MeetingLink(ctx context.Context, _ interview.Proposal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.host == "" {
		return "", errors.New("meeting link host not configured")
	}
	return "https://" + p.host + "/" + p.newID(), nil
}
