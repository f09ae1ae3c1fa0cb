// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ledgerwireNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	ledgerwireNamespace = "ledgerwire"

	serializationSubsystem = "serialization"

	// 以下为当前使用的通用标签名。
	directionLabelName = "direction"
	categoryLabelName  = "category"
	resultLabelName    = "result"
	codeLabelName      = "code"

	DirectionEncode = "encode"
	DirectionDecode = "decode"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	// sizeBuckets 为 envelope 大小的桶划分，单位为字节。
	// 实际桶分布为：[64 256 1024 4096 16384 65536 262144 1.048576e+06 4.194304e+06 1.6777216e+07]
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 10)

	SerializerLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ledgerwireNamespace,
			Subsystem: serializationSubsystem,
			Name:      "serializer_lookups_total",
			Help:      "serializer 缓存查询次数，按类型类别与命中结果区分",
		}, []string{categoryLabelName, resultLabelName})

	EnvelopeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ledgerwireNamespace,
			Subsystem: serializationSubsystem,
			Name:      "envelope_bytes",
			Help:      "编码/解码的 envelope 字节数",
			Buckets:   sizeBuckets,
		}, []string{directionLabelName})

	SerializationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ledgerwireNamespace,
			Subsystem: serializationSubsystem,
			Name:      "failures_total",
			Help:      "编码/解码失败次数，按错误码区分",
		}, []string{directionLabelName, codeLabelName})

	WhitelistRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ledgerwireNamespace,
			Subsystem: serializationSubsystem,
			Name:      "whitelist_rejections_total",
			Help:      "解码时被白名单拒绝的复合类型次数",
		})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SerializerLookups)
		r.MustRegister(EnvelopeBytes)
		r.MustRegister(SerializationFailures)
		r.MustRegister(WhitelistRejections)
		metricRegisterer = r
	})
}
