// Package redis 将任务集合作为单个 JSON 文档保存在 Redis 的一个键中，
// 供多台机器共享同一份任务列表。
package redis
