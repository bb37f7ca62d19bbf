package dialog

import (
	"fmt"
	"sync"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/core"
)

// Set holds the dialogs a conversation can run.
type Set struct {
	sync.Mutex

	dialogs   map[string]Dialog
	converter converter.Converter
}

func NewSet(dialogs ...Dialog) (*Set, error) {
	s := &Set{
		dialogs:   make(map[string]Dialog),
		converter: converter.DefaultConverter,
	}

	for _, d := range dialogs {
		if err := s.Add(d); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Set) Add(d Dialog) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.dialogs[d.ID()]; ok {
		return fmt.Errorf("%w: %q", ErrDialogAlreadyAdded, d.ID())
	}

	s.dialogs[d.ID()] = d

	return nil
}

func (s *Set) Find(id string) (Dialog, error) {
	s.Lock()
	defer s.Unlock()

	d, ok := s.dialogs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDialogNotFound, id)
	}

	return d, nil
}

// SetConverter replaces the converter used for dialog state and options.
func (s *Set) SetConverter(c converter.Converter) {
	s.converter = c
}

func (s *Set) Converter() converter.Converter {
	return s.converter
}

// CreateContext returns a dialog context operating on the given stack for one turn.
func (s *Set) CreateContext(tc TurnContext, stack *core.DialogStack) *Context {
	return &Context{
		dialogs: s,
		tc:      tc,
		stack:   stack,
	}
}
