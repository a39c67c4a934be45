package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRanks        = errors.New("展示顺序必须是从 1 开始的连续整数")
	ErrDuplicateVideoURL   = errors.New("视频地址重复")
	ErrMultipleMainImages  = errors.New("只能设置一张主图")
	ErrDuplicateIdentifier = errors.New("媒体标识重复")
	ErrUnknownMedia        = errors.New("提交的媒体不属于该文章")
	ErrMissingImageSource  = errors.New("新图片必须先上传")
	ErrUnsupportedVideo    = errors.New("不支持的视频地址，仅支持 YouTube、Vimeo 与 Dailymotion")
	ErrIllegalTransition   = errors.New("illegal operation state transition")
	ErrNoEntity            = errors.New("step produced no entity")
	ErrPurgeBusy           = errors.New("purge already running")
	ErrMalformedIdentifier = errors.New("malformed image identifier")
)

// Stage 流水线失败所处的步骤。
type Stage string

const (
	StagePrepare     Stage = "prepare"
	StageStageUpload Stage = "stage_upload"
	StageMoveImage   Stage = "move_image"
	StagePersist     Stage = "persist_image"
	StageResample    Stage = "resample"
	StageAttach      Stage = "attach"
	StageVideo       Stage = "create_video"
	StageCommit      Stage = "commit"
)

// PipelineError 流水线或终态保存失败。补偿已执行，错误对整个请求是致命的。
type PipelineError struct {
	Stage     Stage
	ArticleID uint
	Item      string
	Err       error
	// Compensation 补偿删除本身失败时的错误，仅用于记录
	Compensation error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("media pipeline failed at %s (article=%d item=%s): %v", e.Stage, e.ArticleID, e.Item, e.Err)
	if e.Compensation != nil {
		msg += fmt.Sprintf("; compensation failed: %v", e.Compensation)
	}
	return msg
}

func (e *PipelineError) Unwrap() []error {
	if e.Compensation != nil {
		return []error{e.Err, e.Compensation}
	}
	return []error{e.Err}
}

// AsPipelineError 判断错误是否为流水线失败。
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// produced 把“无实体”视为失败，统一步骤返回值的判断。
func produced[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNoEntity
	}
	return v, nil
}
