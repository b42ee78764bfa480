// Copyright 2023 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datamodel

// Int32Ptr returns a pointer to a copy of v
func Int32Ptr(v int32) *int32 {
	return &v
}

// Int16Ptr returns a pointer to a copy of v
func Int16Ptr(v int16) *int16 {
	return &v
}

// CopyInt16Ptr returns a new pointer holding the value of v, nil stays nil
func CopyInt16Ptr(v *int16) *int16 {
	if v == nil {
		return nil
	}
	return Int16Ptr(*v)
}

// StringPtr you probably don't need this outside of tests
func StringPtr(v string) *string {
	return &v
}
