// Package modpack 描述安装引擎消费的包模型：有序的 PackFile 列表与按 side
// 划分的 override 条目，并提供 .mrpack 归档的读取实现。
//
// 安装引擎只依赖本包的类型与 Archive 接口，不关心清单来自何处。
package modpack
