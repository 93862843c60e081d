package tv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Source is one external input of the TV (HDMI1, TV, USB, ...).
type Source struct {
	ID         int
	Name       string
	Label      string
	DeviceName string
	Editable   bool
	Connected  bool
	Viewable   bool
}

func (s Source) String() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// matches reports whether ref names this source by id, name, label or
// the name of the attached device.
func (s Source) matches(ref string) bool {
	if id, err := strconv.Atoi(ref); err == nil {
		return id == s.ID
	}
	return ref != "" && (ref == s.Name || ref == s.Label || ref == s.DeviceName)
}

type sourceListDocument struct {
	Current int             `xml:"ID"`
	Sources []sourceElement `xml:"Source"`
}

type sourceElement struct {
	SourceType   string `xml:"SourceType"`
	ID           int    `xml:"ID"`
	Editable     string `xml:"Editable"`
	EditNameType string `xml:"EditNameType"`
	DeviceName   string `xml:"DeviceName"`
	Connected    string `xml:"Connected"`
	SupportView  string `xml:"SupportView"`
}

func (e sourceElement) source() Source {
	src := Source{
		ID:         e.ID,
		Name:       strings.TrimSpace(e.SourceType),
		DeviceName: strings.TrimSpace(e.DeviceName),
		Editable:   e.Editable == "Yes",
		Connected:  e.Connected == "Yes",
		Viewable:   e.SupportView == "Yes",
	}
	src.Label = src.Name
	if label := strings.TrimSpace(e.EditNameType); src.Editable && label != "" {
		src.Label = label
	}
	return src
}

// Sources fetches the input list and refreshes the session's registry.
// The second result is the id of the active source.
func (s *Session) Sources(ctx context.Context) ([]Source, int, error) {
	out, err := s.agent(ctx, "GetSourceList")
	if err != nil {
		return nil, 0, err
	}
	text, err := outputString("GetSourceList", out, 1)
	if err != nil {
		return nil, 0, err
	}

	var doc sourceListDocument
	if err := embeddedXML("GetSourceList", text, &doc); err != nil {
		return nil, 0, err
	}

	sources := make([]Source, 0, len(doc.Sources))
	s.mu.Lock()
	clear(s.sources)
	for _, e := range doc.Sources {
		src := e.source()
		s.sources[src.ID] = src
		sources = append(sources, src)
	}
	s.mu.Unlock()
	return sources, doc.Current, nil
}

// Source returns a source from the registry filled by the last Sources call.
func (s *Session) Source(id int) (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	return src, ok
}

// CurrentSource returns the active external source.
func (s *Session) CurrentSource(ctx context.Context) (Source, error) {
	out, err := s.agent(ctx, "GetCurrentExternalSource")
	if err != nil {
		return Source{}, err
	}
	id, err := outputInt("GetCurrentExternalSource", out, 2)
	if err != nil {
		return Source{}, err
	}
	if _, _, err := s.Sources(ctx); err != nil {
		return Source{}, err
	}
	if src, ok := s.Source(id); ok {
		return src, nil
	}
	return Source{}, fmt.Errorf("id %d: %w", id, ErrSourceNotFound)
}

// FindSource looks up a source by id, name, label or device name.
func (s *Session) FindSource(ctx context.Context, ref string) (Source, error) {
	sources, _, err := s.Sources(ctx)
	if err != nil {
		return Source{}, err
	}
	ref = strings.TrimSpace(ref)
	for _, src := range sources {
		if src.matches(ref) {
			return src, nil
		}
	}
	return Source{}, fmt.Errorf("%q: %w", ref, ErrSourceNotFound)
}

// SetSource switches the main screen to the source named by ref.
func (s *Session) SetSource(ctx context.Context, ref string) error {
	src, err := s.FindSource(ctx, ref)
	if err != nil {
		return err
	}
	if !src.Connected {
		return fmt.Errorf("source %s is not connected", src)
	}
	id := strconv.Itoa(src.ID)
	_, err = s.agent(ctx, "SetMainTVSource", src.Name, id, id)
	return err
}

// EditSourceName sets the display label of an editable source.
func (s *Session) EditSourceName(ctx context.Context, ref, label string) error {
	src, err := s.FindSource(ctx, ref)
	if err != nil {
		return err
	}
	if !src.Editable {
		return fmt.Errorf("source %s cannot be renamed", src)
	}
	if _, err := s.agent(ctx, "EditSourceName", src.Name, label); err != nil {
		return err
	}

	s.mu.Lock()
	src.Label = label
	s.sources[src.ID] = src
	s.mu.Unlock()
	return nil
}
