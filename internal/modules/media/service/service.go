package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"snowtricks-server/internal/model"
	"snowtricks-server/internal/modules/media/dto"
	"snowtricks-server/internal/modules/media/repo"
	platformservice "snowtricks-server/internal/platform/service"
	"snowtricks-server/internal/storage"

	"go.uber.org/zap"
)

// Dirs 各类媒体的上传目录。
type Dirs struct {
	Trick  string
	Avatar string
	Temp   string
}

// All 返回需要清理孤儿文件的目录（临时目录按过期时间单独清理）。
func (d Dirs) All() []string {
	dirs := []string{d.Trick}
	if d.Avatar != "" {
		dirs = append(dirs, d.Avatar)
	}
	return dirs
}

type Service struct {
	*platformservice.AppService
	store     repo.MediaStore
	files     storage.FileStore
	resizer   Resizer
	stager    *Stager
	purger    *Purger
	dirs      Dirs
	urlPrefix string
	tempTTL   time.Duration
	log       *zap.Logger
}

func New(appService *platformservice.AppService, store repo.MediaStore, files storage.FileStore, resizer Resizer) *Service {
	upload := appService.Config().Upload
	dirs := Dirs{Trick: upload.TrickPath, Avatar: upload.AvatarPath, Temp: upload.TempPath}
	log := appService.Logger().Named("media")

	return &Service{
		AppService: appService,
		store:      store,
		files:      files,
		resizer:    resizer,
		stager:     NewStager(files, dirs.Temp, upload.MaxUploadSize),
		purger:     NewPurger(store, files, upload.PurgeLock, upload.PurgeGrace, log),
		dirs:       dirs,
		urlPrefix:  upload.URLPrefix,
		tempTTL:    upload.TempTTL,
		log:        log,
	}
}

func (s *Service) Dirs() Dirs {
	return s.dirs
}

func (s *Service) Purger() *Purger {
	return s.purger
}

// PlanInput 一次操作的输入。更新时 OwnerID 必填，PreviousSlug 用于判断是否需要改名。
type PlanInput struct {
	Kind         Kind
	ArticleID    uint
	OwnerID      uint
	CreatorID    uint
	Slug         string
	PreviousSlug string
	Images       []dto.ImageDescriptor
	Videos       []dto.VideoDescriptor
}

// Plan 校验提交并与操作前的状态做差异计算，不产生任何副作用。
func (s *Service) Plan(ctx context.Context, in PlanInput) (*Operation, error) {
	in.Images, in.Videos = normalizeDescriptors(in.Images, in.Videos)
	if err := ValidateSubmission(Submission{Images: in.Images, Videos: in.Videos}); err != nil {
		return nil, err
	}
	// 随表单上传的文件在任何写入之前校验
	for _, desc := range in.Images {
		if desc.Identifier == "" && desc.File != nil {
			if _, err := s.stager.validate(desc.File); err != nil {
				return nil, err
			}
		}
	}

	var (
		prevImages []ImageGroup
		prevVideos []model.Media
	)
	if in.Kind == KindUpdate && in.OwnerID != 0 {
		medias, err := s.store.ListByOwner(ctx, in.OwnerID)
		if err != nil {
			return nil, platformservice.WrapInternalError("读取文章媒体失败", err)
		}
		prevImages, prevVideos = GroupMedia(medias)
	}

	diff, err := Diff(prevImages, prevVideos, in.Images, in.Videos)
	if err != nil {
		return nil, err
	}

	return &Operation{
		Kind:         in.Kind,
		ArticleID:    in.ArticleID,
		OwnerID:      in.OwnerID,
		CreatorID:    in.CreatorID,
		Slug:         in.Slug,
		PreviousSlug: in.PreviousSlug,
		state:        StateStarted,
		diff:         diff,
		snapshot:     diff.Snapshot,
	}, nil
}

// normalizeDescriptors 复制提交的描述并去掉标识符首尾空白，校验与比对共用同一份值。
func normalizeDescriptors(images []dto.ImageDescriptor, videos []dto.VideoDescriptor) ([]dto.ImageDescriptor, []dto.VideoDescriptor) {
	outImages := make([]dto.ImageDescriptor, len(images))
	for i, desc := range images {
		desc.Identifier = strings.TrimSpace(desc.Identifier)
		outImages[i] = desc
	}
	outVideos := make([]dto.VideoDescriptor, len(videos))
	for i, desc := range videos {
		desc.Identifier = strings.TrimSpace(desc.Identifier)
		outVideos[i] = desc
	}
	return outImages, outVideos
}

// StageUpload 暂存一张上传的图片，返回临时标识符。
func (s *Service) StageUpload(ctx context.Context, req dto.StageRequest) (*dto.StageResponse, error) {
	staged, err := s.stager.Stage(ctx, req.File, req.Crop)
	if err != nil {
		if platformservice.IsValidation(err) {
			return nil, err
		}
		s.log.Error("failed to stage upload", zap.Error(err))
		return nil, platformservice.WrapInternalError("图片暂存失败", err)
	}
	return &dto.StageResponse{
		Identifier: staged.Identifier,
		URL:        s.fileURL("tmp", staged.FileName),
	}, nil
}

func (s *Service) fileURL(category, name string) string {
	return strings.TrimSuffix(s.urlPrefix, "/") + "/" + category + "/" + name
}

// Gallery 按展示顺序列出持有者的图片（按逻辑图片聚合）与视频。
func (s *Service) Gallery(ctx context.Context, ownerID uint) (dto.Gallery, error) {
	medias, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return dto.Gallery{}, err
	}
	return s.BuildGallery(medias), nil
}

func (s *Service) BuildGallery(medias []model.Media) dto.Gallery {
	groups, videos := GroupMedia(medias)
	gallery := dto.Gallery{Images: []dto.ImageView{}, Videos: []dto.VideoView{}}

	for _, g := range groups {
		big := g.Big()
		view := dto.ImageView{
			Identifier:  imageOf(big).Name,
			Description: imageOf(big).Description,
			Rank:        big.ShowListRank,
			IsMain:      big.IsMain,
			Versions:    make(map[string]string, len(g.Versions)),
		}
		for _, v := range g.Versions {
			view.Versions[string(v.Type)] = s.fileURL("tricks", imageOf(v).FileName())
		}
		gallery.Images = append(gallery.Images, view)
	}
	for _, m := range videos {
		v := videoOf(m)
		gallery.Videos = append(gallery.Videos, dto.VideoView{
			Identifier:  v.Name,
			Provider:    string(m.Type),
			URL:         v.URL,
			Description: v.Description,
			Rank:        m.ShowListRank,
		})
	}

	sort.SliceStable(gallery.Images, func(i, j int) bool { return gallery.Images[i].Rank < gallery.Images[j].Rank })
	sort.SliceStable(gallery.Videos, func(i, j int) bool { return gallery.Videos[i].Rank < gallery.Videos[j].Rank })
	return gallery
}

// Teardown 删除持有者的全部媒体以及文章与持有者本身。实体在单个事务内删除，成功后再删文件。
func (s *Service) Teardown(ctx context.Context, articleID, ownerID uint) error {
	medias, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return platformservice.WrapInternalError("读取文章媒体失败", err)
	}

	plan := repo.RemovalPlan{ArticleID: articleID, OwnerID: ownerID}
	var files []string
	for _, m := range medias {
		if img := imageOf(m); img != nil {
			plan.ImageIDs = append(plan.ImageIDs, img.ID)
			files = append(files, img.FileName())
		}
		if v := videoOf(m); v != nil {
			plan.VideoIDs = append(plan.VideoIDs, v.ID)
		}
	}

	if err := s.store.Remove(ctx, plan); err != nil {
		return platformservice.WrapInternalError("删除文章失败", err)
	}
	s.removeFiles(ctx, s.dirs.Trick, files)
	return nil
}

// SweepTemporary 清理过期的暂存图片。
func (s *Service) SweepTemporary(ctx context.Context) (PurgeReport, error) {
	return s.purger.PurgeStaleTemporary(ctx, s.dirs.Temp, s.tempTTL)
}

// removeFiles 尽力删除文件，失败只记录日志。
func (s *Service) removeFiles(ctx context.Context, dir string, names []string) {
	for _, name := range names {
		if err := s.files.Remove(ctx, dir, name); err != nil {
			s.log.Warn("failed to remove media file", zap.String("dir", dir), zap.String("file", name), zap.Error(err))
		}
	}
}
