package service

import (
	"fmt"

	"snowtricks-server/internal/modules/media/repo"
)

type State int

const (
	StateStarted State = iota
	StateAttachingMedia
	StateCommitting
	StateRollingBack
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateAttachingMedia:
		return "attaching_media"
	case StateCommitting:
		return "committing"
	case StateRollingBack:
		return "rolling_back"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

type Kind int

const (
	KindCreate Kind = iota
	KindUpdate
)

var transitions = map[State][]State{
	StateStarted:        {StateAttachingMedia},
	StateAttachingMedia: {StateCommitting, StateRollingBack},
	StateCommitting:     {StateTerminated, StateRollingBack},
	StateRollingBack:    {StateTerminated},
}

type storedFile struct {
	dir  string
	name string
}

type fileRestore struct {
	moved  storedFile
	origin storedFile
}

// Operation 一次文章创建/更新的媒体操作。snapshot 记录操作开始前已存在的媒体 ID，
// 补偿时只删除不在其中的媒体。
type Operation struct {
	Kind         Kind
	ArticleID    uint
	OwnerID      uint
	CreatorID    uint
	Slug         string
	PreviousSlug string

	state   State
	outcome Outcome

	diff     DiffResult
	snapshot map[uint]struct{}

	createdFiles    []storedFile
	restores        []fileRestore
	createdImageIDs []uint
	createdVideoIDs []uint
	removedFiles    []string
	plan            repo.CommitPlan
}

func (op *Operation) State() State {
	return op.state
}

func (op *Operation) Outcome() Outcome {
	return op.outcome
}

// Diff 返回本次操作的差异计算结果。
func (op *Operation) Diff() DiffResult {
	return op.diff
}

// Bind 创建文章后绑定文章与媒体持有者。
func (op *Operation) Bind(articleID, ownerID uint) {
	op.ArticleID = articleID
	op.OwnerID = ownerID
}

func (op *Operation) transition(to State) error {
	for _, allowed := range transitions[op.state] {
		if allowed == to {
			op.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, op.state, to)
}

func (op *Operation) terminate(outcome Outcome) error {
	if err := op.transition(StateTerminated); err != nil {
		return err
	}
	op.outcome = outcome
	return nil
}

func (op *Operation) trackFile(dir, name string) {
	op.createdFiles = append(op.createdFiles, storedFile{dir: dir, name: name})
}

// trackRestore 记录从客户端暂存区移入的文件，回滚时移回原位置。
func (op *Operation) trackRestore(moved, origin storedFile) {
	op.restores = append(op.restores, fileRestore{moved: moved, origin: origin})
}

// existedBefore 判断媒体是否在操作开始前就存在。
func (op *Operation) existedBefore(mediaID uint) bool {
	_, ok := op.snapshot[mediaID]
	return ok
}
