package crawler

// task is one pending traversal step.
type task struct {
	// self
	id   string
	name string
	// parent, used for bundle identity of single-file tasks
	parentID   string
	parentName string
	// owning root
	rootID string
	// flags
	isFile       bool
	fromShortcut bool
	isRootTask   bool
}

// frontier is the crawler's pending work-list: a double-ended queue exposing
// exactly pushBack, pushFront, and popBack. Tail-pop plus
// head-insertion-for-shortcuts guarantees that all directly reachable
// folders at a depth are fully explored before any shortcut discovered at
// that depth is resolved.
type frontier struct {
	tasks []task
}

func (f *frontier) pushBack(t task) {
	f.tasks = append(f.tasks, t)
}

func (f *frontier) pushFront(t task) {
	f.tasks = append([]task{t}, f.tasks...)
}

func (f *frontier) popBack() (task, bool) {
	if len(f.tasks) == 0 {
		return task{}, false
	}
	t := f.tasks[len(f.tasks)-1]
	f.tasks = f.tasks[:len(f.tasks)-1]
	return t, true
}

func (f *frontier) len() int {
	return len(f.tasks)
}
