// Package script 预处理脚本服务
//
// 组合脚本获取、Reduction 查询与脚本转换：先获取脚本，
// 给定 reduction_id 时查出对应 Reduction 并按仪器转换脚本参数。
package script

import (
	"context"
	"fmt"

	"ir-api/internal/script/acquisition"
	"ir-api/internal/script/transform"
	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage"
	"ir-api/internal/shared/storage/specification"
	"ir-api/pkg/logging"
)

// ReductionFinder 按规格查询单个 Reduction
type ReductionFinder interface {
	FindOne(ctx context.Context, spec specification.Specification[model.Reduction]) (*model.Reduction, error)
}

// Service 预处理脚本服务
type Service struct {
	acquirer   *acquisition.Acquirer
	reductions ReductionFinder
	transforms *transform.Registry
	logger     *logging.Logger
}

// NewService 创建脚本服务
func NewService(acquirer *acquisition.Acquirer, reductions ReductionFinder, transforms *transform.Registry) *Service {
	return &Service{
		acquirer:   acquirer,
		reductions: reductions,
		transforms: transforms,
		logger:     logging.Default("script"),
	}
}

// ForReduction 获取仪器最新脚本，reductionID 非空时应用转换
func (s *Service) ForReduction(ctx context.Context, instrument string, reductionID *int64) (*model.PreScript, error) {
	s.logger.WithInstrument(instrument).Info("Getting script for instrument")
	script, err := s.acquirer.Latest(ctx, instrument)
	if err != nil {
		return nil, err
	}
	if err := s.transform(ctx, instrument, script, reductionID); err != nil {
		return nil, err
	}
	return script, nil
}

// BySHA 获取指定版本的脚本，reductionID 非空时应用转换
func (s *Service) BySHA(ctx context.Context, instrument, sha string, reductionID *int64) (*model.PreScript, error) {
	s.logger.WithInstrument(instrument).Info("Getting script by sha", "sha", sha)
	script, err := s.acquirer.BySHA(ctx, instrument, sha)
	if err != nil {
		return nil, err
	}
	if err := s.transform(ctx, instrument, script, reductionID); err != nil {
		return nil, err
	}
	return script, nil
}

// WriteBackAsync 响应之后异步写回最新脚本
func (s *Service) WriteBackAsync(instrument string, script *model.PreScript) {
	s.acquirer.WriteBackAsync(instrument, script)
}

// transform 查询 Reduction 并转换脚本
func (s *Service) transform(ctx context.Context, instrument string, script *model.PreScript, reductionID *int64) error {
	if reductionID == nil {
		return nil
	}
	logger := s.logger.WithInstrument(instrument).WithReductionID(*reductionID)

	logger.Info("Querying for reduction")
	reduction, err := s.reductions.FindOne(ctx, specification.ByID[model.Reduction](*reductionID))
	if err != nil {
		return fmt.Errorf("find reduction %d: %w", *reductionID, err)
	}
	if reduction == nil {
		logger.Info("Reduction not found")
		return fmt.Errorf("no reduction found with id %d: %w", *reductionID, storage.ErrMissingRecord)
	}

	return s.transforms.Apply(instrument, script, reduction)
}
