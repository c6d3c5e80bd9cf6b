package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// JobFields 提供安装任务级别的公共字段，供 installer 及 CLI 复用。
func JobFields(jobID, destination, side string) logrus.Fields {
	return logrus.Fields{
		"job_id":      jobID,
		"destination": destination,
		"side":        side,
	}
}

// FileFields 描述单个包文件，配合 JobFields 输出逐文件决策日志。
func FileFields(path string, size int64) logrus.Fields {
	return logrus.Fields{
		"file":      path,
		"file_size": size,
	}
}

// Merge 将多个字段集合并为一个新的 Fields，后者覆盖前者。
func Merge(sets ...logrus.Fields) logrus.Fields {
	merged := logrus.Fields{}
	for _, set := range sets {
		for key, value := range set {
			merged[key] = value
		}
	}
	return merged
}

// RequestFields 描述镜像服务的一次 blob 请求。
func RequestFields(method, key, requestID string) logrus.Fields {
	fields := logrus.Fields{
		"action": "serve_blob",
		"method": method,
		"key":    key,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
