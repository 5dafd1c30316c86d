package session

import "errors"

var (
	// ErrBusy is returned when a command needs an idle session.
	ErrBusy = errors.New("scan in progress")
	// ErrInvalidArgument is returned for a missing source, root or lister.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoSelection is returned by Manager commands when no volume is selected.
	ErrNoSelection = errors.New("no volume selected")
	// ErrUnknownVolume is returned by Select for a root the manager does not hold.
	ErrUnknownVolume = errors.New("unknown volume")
)
