// config/config.go
package config

import (
	"fmt"
	"time"
)

// Config 主配置结构
type Config struct {
	Database DatabaseConfig
	Engine   EngineConfig
	Lookup   LookupConfig
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// BadgerDB配置
	ValueLogFileSize int64 // 64 << 20 (64MB)
	SyncWrites       bool  // true

	// 缓存配置
	InfoCacheSize     int    // 128（InvestmentInfo 读缓存条数）
	SequenceBandwidth uint64 // 128（事件发号器预取带宽）
}

// EngineConfig 执行引擎配置
type EngineConfig struct {
	// 单笔交易最多插入的投资记录数（受交易体积限制）
	MaxRecordsPerTxn int // 5
}

// LookupConfig 查表编排配置
type LookupConfig struct {
	// 每次 extend 最多追加的地址条数
	ChunkSize int // 20

	// 轮询表可解析状态的最大尝试次数与退避间隔
	ResolveAttempts int           // 5
	ResolveBackoff  time.Duration // 200 * time.Millisecond
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			ValueLogFileSize:  64 << 20,
			SyncWrites:        true,
			InfoCacheSize:     128,
			SequenceBandwidth: 128,
		},
		Engine: EngineConfig{
			MaxRecordsPerTxn: 5,
		},
		Lookup: LookupConfig{
			ChunkSize:       20,
			ResolveAttempts: 5,
			ResolveBackoff:  200 * time.Millisecond,
		},
	}
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.Engine.MaxRecordsPerTxn < 1 {
		return fmt.Errorf("config: MaxRecordsPerTxn must be >= 1, got %d", c.Engine.MaxRecordsPerTxn)
	}
	if c.Lookup.ChunkSize < 1 {
		return fmt.Errorf("config: Lookup.ChunkSize must be >= 1, got %d", c.Lookup.ChunkSize)
	}
	if c.Lookup.ResolveAttempts < 1 {
		return fmt.Errorf("config: Lookup.ResolveAttempts must be >= 1, got %d", c.Lookup.ResolveAttempts)
	}
	return nil
}
