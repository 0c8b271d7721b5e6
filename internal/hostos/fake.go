package hostos

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// FakeHost is an in-memory Host. It keeps the mount table and binfmt
// registrations it was asked to create and logs every call in Actions.
type FakeHost struct {
	mu sync.Mutex

	Actions    []string
	Mounts     map[string]string // target -> source
	ReadOnly   map[string]bool
	Registered map[string]string // dir/name -> record
	Binfmt     map[string]bool   // dirs with binfmt_misc mounted

	BindMountErr  error
	UnmountErr    error
	LoadModuleErr error
	BinfmtErr     error
	RegisterErr   error
}

func NewFakeHost() *FakeHost {
	return &FakeHost{
		Mounts:     make(map[string]string),
		ReadOnly:   make(map[string]bool),
		Registered: make(map[string]string),
		Binfmt:     make(map[string]bool),
	}
}

func (f *FakeHost) record(format string, args ...interface{}) {
	f.Actions = append(f.Actions, fmt.Sprintf(format, args...))
}

func (f *FakeHost) IsMountPoint(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if _, ok := f.Mounts[path]; ok {
		return true, nil
	}
	return f.Binfmt[path], nil
}

func (f *FakeHost) BindMount(src, target string, readOnly bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("bind %s %s ro=%t", src, target, readOnly)
	if f.BindMountErr != nil {
		return f.BindMountErr
	}
	target = filepath.Clean(target)
	f.Mounts[target] = src
	f.ReadOnly[target] = readOnly
	return nil
}

func (f *FakeHost) Unmount(target string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("umount %s force=%t", target, force)
	if f.UnmountErr != nil {
		return f.UnmountErr
	}
	target = filepath.Clean(target)
	if _, ok := f.Mounts[target]; !ok {
		return fmt.Errorf("failed to unmount %s: not mounted", target)
	}
	delete(f.Mounts, target)
	delete(f.ReadOnly, target)
	return nil
}

func (f *FakeHost) LoadModule(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("modprobe %s", name)
	return f.LoadModuleErr
}

func (f *FakeHost) MountBinfmtMisc(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mount binfmt_misc %s", dir)
	if f.BinfmtErr != nil {
		return f.BinfmtErr
	}
	f.Binfmt[filepath.Clean(dir)] = true
	return nil
}

func (f *FakeHost) BinfmtRegistered(dir, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Registered[filepath.Join(dir, name)]
	return ok
}

// RegisterBinfmt stores the record under the name in its first field, as
// the kernel would expose it.
func (f *FakeHost) RegisterBinfmt(dir, record string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("register %s", record)
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	fields := strings.Split(record, ":")
	if len(fields) < 2 || fields[1] == "" {
		return fmt.Errorf("invalid binfmt record %q", record)
	}
	f.Registered[filepath.Join(dir, fields[1])] = record
	return nil
}

// MountCount returns the number of active mounts.
func (f *FakeHost) MountCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Mounts)
}

// ActionsWithPrefix returns the recorded actions starting with prefix.
func (f *FakeHost) ActionsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, a := range f.Actions {
		if strings.HasPrefix(a, prefix) {
			out = append(out, a)
		}
	}
	return out
}
