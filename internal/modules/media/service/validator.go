package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/naming"
	platformservice "snowtricks-server/internal/platform/service"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Submission 一次提交的图片与视频集合。
type Submission struct {
	Images []dto.ImageDescriptor `validate:"dive"`
	Videos []dto.VideoDescriptor `validate:"dive"`
}

// ValidateSubmission 在差异计算之前校验提交的集合。
// 返回的错误均为校验错误，不会触发补偿。
func ValidateSubmission(sub Submission) error {
	if err := structValidator().Struct(sub); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return platformservice.NewValidationError(fmt.Sprintf("媒体参数错误: %s (%s)", fe.Namespace(), fe.Tag()))
		}
		return platformservice.NewValidationError("媒体参数错误")
	}

	imageRanks := make([]int, 0, len(sub.Images))
	mainCount := 0
	seenImages := make(map[string]struct{}, len(sub.Images))
	for _, img := range sub.Images {
		imageRanks = append(imageRanks, img.Rank)
		if img.IsMain {
			mainCount++
		}
		id := strings.TrimSpace(img.Identifier)
		if id == "" {
			if img.File == nil {
				return platformservice.WrapValidationError(ErrMissingImageSource)
			}
			continue
		}
		key := id
		if !naming.IsTemporary(id) {
			key = naming.VersionGroupKey(id)
		}
		if _, dup := seenImages[key]; dup {
			return platformservice.WrapValidationError(ErrDuplicateIdentifier)
		}
		seenImages[key] = struct{}{}
	}
	if mainCount > 1 {
		return platformservice.WrapValidationError(ErrMultipleMainImages)
	}
	if !denseRanks(imageRanks) {
		return platformservice.WrapValidationError(ErrInvalidRanks)
	}

	videoRanks := make([]int, 0, len(sub.Videos))
	seenURLs := make(map[string]struct{}, len(sub.Videos))
	seenVideos := make(map[string]struct{}, len(sub.Videos))
	for _, v := range sub.Videos {
		videoRanks = append(videoRanks, v.Rank)
		_, embed, ok := ResolveVideo(v.URL)
		if !ok {
			return platformservice.WrapValidationError(ErrUnsupportedVideo)
		}
		if _, dup := seenURLs[embed]; dup {
			return platformservice.WrapValidationError(ErrDuplicateVideoURL)
		}
		seenURLs[embed] = struct{}{}
		if v.Identifier != "" {
			if _, dup := seenVideos[v.Identifier]; dup {
				return platformservice.WrapValidationError(ErrDuplicateIdentifier)
			}
			seenVideos[v.Identifier] = struct{}{}
		}
	}
	if !denseRanks(videoRanks) {
		return platformservice.WrapValidationError(ErrInvalidRanks)
	}
	return nil
}

// denseRanks 判断排序值是否恰好为 1..n。
func denseRanks(ranks []int) bool {
	sorted := append([]int(nil), ranks...)
	sort.Ints(sorted)
	for i, r := range sorted {
		if r != i+1 {
			return false
		}
	}
	return true
}
