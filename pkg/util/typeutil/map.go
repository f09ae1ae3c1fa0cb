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

package typeutil

import "sync"

// ConcurrentMap 是 sync.Map 的泛型封装，适合读多写少、键集合基本只增不减的场景。
type ConcurrentMap[K comparable, V any] struct {
	inner sync.Map
}

func NewConcurrentMap[K comparable, V any]() *ConcurrentMap[K, V] {
	return &ConcurrentMap[K, V]{}
}

// Get 返回 key 对应的值。
func (m *ConcurrentMap[K, V]) Get(key K) (V, bool) {
	var zero V
	value, ok := m.inner.Load(key)
	if !ok {
		return zero, false
	}
	return value.(V), true
}

// Insert 写入或覆盖 key 对应的值。
func (m *ConcurrentMap[K, V]) Insert(key K, value V) {
	m.inner.Store(key, value)
}

// GetOrInsert 在 key 不存在时写入 value。
// 返回最终保存的值，以及该值是否在调用前已经存在。
func (m *ConcurrentMap[K, V]) GetOrInsert(key K, value V) (V, bool) {
	actual, loaded := m.inner.LoadOrStore(key, value)
	return actual.(V), loaded
}

// Remove 删除 key。
func (m *ConcurrentMap[K, V]) Remove(key K) {
	m.inner.Delete(key)
}

// Len 返回当前元素个数，需要遍历整个 map。
func (m *ConcurrentMap[K, V]) Len() int {
	n := 0
	m.inner.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Range 遍历所有元素，回调返回 false 时提前结束。
func (m *ConcurrentMap[K, V]) Range(f func(key K, value V) bool) {
	m.inner.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}
