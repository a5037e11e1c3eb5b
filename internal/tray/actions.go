package tray

// Actions are the callbacks behind the tray menu. Nil entries disable the
// matching behaviour.
type Actions struct {
	Show             func()
	Quit             func()
	AutostartEnabled func() (bool, error)
	SetAutostart     func(enable bool) error
	OnError          func(error)
}
