/*
Copyright © 2025 Ian Shuley

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hashertest provides cheap hashers for tests in other packages.
package hashertest

import (
	"authbridge/internal/hasher"
)

// Params are deliberately tiny so tests that hash many secrets stay fast
var Params = hasher.Params{
	MemoryKiB:   64,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// New returns a Hasher using Params
func New() *hasher.Hasher {
	h, err := hasher.New(Params)
	if err != nil {
		panic(err)
	}
	return h
}
