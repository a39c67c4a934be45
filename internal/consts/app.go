package consts

import "time"

const (
	ApplicationName    = "SnowTricks Server"
	ApplicationVersion = "v0.1.0"
)

const (
	// 暂存目录的过期清理间隔
	TempSweepInterval = 10 * time.Minute
	// 后台孤儿文件清理间隔
	OrphanPurgeInterval = 6 * time.Hour
)
