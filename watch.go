package lazydb

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Change reports that the leaf or child container Name, directly
// under a watched container, was created, written, removed or renamed.
type Change struct {
	Name string
	Op   fsnotify.Op
}

// Watcher delivers changes made to one container by anyone,
// including other processes.  Changes are not recursive.
//
// Errors holds at most one pending error; further errors arriving
// while it is full are logged and dropped, so an undrained Errors
// never holds up Changes.
type Watcher struct {
	Container *Container
	Changes   <-chan Change
	Errors    <-chan error
	watcher   *fsnotify.Watcher
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Watch starts watching c.  The caller must Close the watcher.
func (c *Container) Watch() (wt *Watcher, err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ioErr(c.Path, err)
	}
	err = fw.Add(c.Path)
	if err != nil {
		fw.Close()
		return nil, ioErr(c.Path, err)
	}
	changes := make(chan Change)
	errs := make(chan error, 1)
	wt = &Watcher{
		Container: c,
		Changes:   changes,
		Errors:    errs,
		watcher:   fw,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go wt.run(changes, errs)
	return
}

func (wt *Watcher) run(changes chan<- Change, errs chan<- error) {
	defer close(wt.done)
	defer close(errs)
	defer close(changes)
	for {
		select {
		case ev, ok := <-wt.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if wt.Container.root && name == MetaName {
				continue
			}
			log.Debugf("watch %s: %s", wt.Container.Path, ev)
			select {
			case changes <- Change{Name: name, Op: ev.Op}:
			case <-wt.stop:
				return
			}
		case err, ok := <-wt.watcher.Errors:
			if !ok {
				return
			}
			err = ioErr(wt.Container.Path, err)
			select {
			case errs <- err:
			default:
				log.Warnf("watch %s: dropped error: %v", wt.Container.Path, err)
			}
		case <-wt.stop:
			return
		}
	}
}

// Close stops the watcher and closes Changes and Errors.  Calling it
// again returns the first result.
func (wt *Watcher) Close() error {
	wt.closeOnce.Do(func() {
		close(wt.stop)
		wt.closeErr = wt.watcher.Close()
		<-wt.done
	})
	return wt.closeErr
}
