package service

import (
	"context"
	"errors"
	"strings"

	"snowtricks-server/internal/model"
	"snowtricks-server/internal/modules/media/naming"
	mediarepo "snowtricks-server/internal/modules/media/repo"
	mediaservice "snowtricks-server/internal/modules/media/service"
	"snowtricks-server/internal/modules/trick/dto"
	"snowtricks-server/internal/modules/trick/repo"
	platformservice "snowtricks-server/internal/platform/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// normalize 清理文本字段并生成 slug。
func normalize(req *dto.SaveTrickRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Group = strings.TrimSpace(req.Group)
	if req.Name == "" {
		return "", platformservice.NewValidationError("名称不能为空")
	}
	slug := naming.Slugify(req.Name)
	if slug == "" {
		return "", platformservice.NewValidationError("名称至少需要包含一个字母或数字")
	}
	return slug, nil
}

func (s *Service) ensureUnique(ctx context.Context, name, slug string, excludeID uint) error {
	taken, err := s.articles.IsNameOrSlugTaken(ctx, name, slug, excludeID)
	if err != nil {
		return platformservice.WrapInternalError("检查名称失败", err)
	}
	if taken {
		return platformservice.NewConflictError("已存在同名技巧")
	}
	return nil
}

// Create 创建文章及其全部媒体。媒体流水线失败时文章本身也不会保留。
func (s *Service) Create(ctx context.Context, creatorID uint, req dto.SaveTrickRequest) (*model.Article, error) {
	slug, err := normalize(&req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.Name, slug, 0); err != nil {
		return nil, err
	}

	op, err := s.media.Plan(ctx, mediaservice.PlanInput{
		Kind:      mediaservice.KindCreate,
		CreatorID: creatorID,
		Slug:      slug,
		Images:    req.Images,
		Videos:    req.Videos,
	})
	if err != nil {
		return nil, err
	}

	article := &model.Article{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Group:       req.Group,
		IsPublished: req.IsPublished,
		CreatorID:   creatorID,
	}
	err = s.media.Execute(ctx, op, mediaservice.Hooks{
		Prepare: func(ctx context.Context) (uint, uint, error) {
			if err := s.articles.CreateWithOwner(ctx, article); err != nil {
				return 0, 0, err
			}
			return article.ID, article.MediaOwnerID, nil
		},
		Save: func(ctx context.Context, plan mediarepo.CommitPlan) error {
			return s.articles.SaveWithMedia(ctx, article, plan)
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("trick created", zap.Uint("article_id", article.ID), zap.String("slug", slug))
	return article, nil
}

// Update 更新文章字段并同步媒体集合。名称变化时图片文件随之改名。
func (s *Service) Update(ctx context.Context, articleID, userID uint, req dto.SaveTrickRequest) (*model.Article, error) {
	article, err := s.find(ctx, articleID)
	if err != nil {
		return nil, err
	}
	slug, err := normalize(&req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.Name, slug, article.ID); err != nil {
		return nil, err
	}

	op, err := s.media.Plan(ctx, mediaservice.PlanInput{
		Kind:         mediaservice.KindUpdate,
		ArticleID:    article.ID,
		OwnerID:      article.MediaOwnerID,
		CreatorID:    userID,
		Slug:         slug,
		PreviousSlug: article.Slug,
		Images:       req.Images,
		Videos:       req.Videos,
	})
	if err != nil {
		return nil, err
	}

	updated := *article
	updated.Name = req.Name
	updated.Slug = slug
	updated.Description = req.Description
	updated.Group = req.Group
	updated.IsPublished = req.IsPublished

	err = s.media.Execute(ctx, op, mediaservice.Hooks{
		Save: func(ctx context.Context, plan mediarepo.CommitPlan) error {
			return s.articles.SaveWithMedia(ctx, &updated, plan)
		},
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) find(ctx context.Context, id uint) (*model.Article, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformservice.NewNotFoundError("技巧不存在")
		}
		return nil, platformservice.WrapInternalError("读取技巧失败", err)
	}
	return article, nil
}

// Get 返回文章及按展示顺序排列的媒体。
func (s *Service) Get(ctx context.Context, id uint) (*dto.TrickResponse, error) {
	article, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.View(ctx, article)
}

// GetBySlug 按 slug 查找，供公开页面使用。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*dto.TrickResponse, error) {
	article, err := s.articles.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformservice.NewNotFoundError("技巧不存在")
		}
		return nil, platformservice.WrapInternalError("读取技巧失败", err)
	}
	return s.View(ctx, article)
}

// View 组装文章响应。
func (s *Service) View(ctx context.Context, article *model.Article) (*dto.TrickResponse, error) {
	gallery, err := s.media.Gallery(ctx, article.MediaOwnerID)
	if err != nil {
		return nil, platformservice.WrapInternalError("读取技巧媒体失败", err)
	}
	return &dto.TrickResponse{
		ID:          article.ID,
		Name:        article.Name,
		Slug:        article.Slug,
		Description: article.Description,
		Group:       article.Group,
		IsPublished: article.IsPublished,
		CreatorID:   article.CreatorID,
		CreatedAt:   article.CreatedAt,
		UpdatedAt:   article.UpdatedAt,
		Media:       gallery,
	}, nil
}

// Delete 删除文章、全部媒体实体与文件。
func (s *Service) Delete(ctx context.Context, id uint) error {
	article, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.media.Teardown(ctx, article.ID, article.MediaOwnerID); err != nil {
		return err
	}
	s.log.Info("trick deleted", zap.Uint("article_id", article.ID))
	return nil
}

// List 分页列出技巧，附带主图缩略图。
func (s *Service) List(ctx context.Context, req dto.TrickListRequest) ([]dto.TrickSummary, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 10
	}

	articles, total, err := s.articles.ListTricks(ctx, repo.ListTricksParams{
		Group:         strings.TrimSpace(req.Group),
		OnlyPublished: req.OnlyPublished,
		Offset:        (req.Page - 1) * req.PageSize,
		Limit:         req.PageSize,
	})
	if err != nil {
		return nil, 0, platformservice.WrapInternalError("获取技巧列表失败", err)
	}

	items := make([]dto.TrickSummary, 0, len(articles))
	for _, a := range articles {
		gallery, err := s.media.Gallery(ctx, a.MediaOwnerID)
		if err != nil {
			return nil, 0, platformservice.WrapInternalError("读取技巧媒体失败", err)
		}
		items = append(items, dto.TrickSummary{
			ID:          a.ID,
			Name:        a.Name,
			Slug:        a.Slug,
			Group:       a.Group,
			IsPublished: a.IsPublished,
			Thumbnail:   thumbnailOf(gallery),
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return items, total, nil
}
