// Copyright 2026 The Authors.
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

package fatfs

import "time"

// toFATTime renders t as a packed FAT time/date pair, the Go rendition of
// fatfs_time.c's conversion from the kernel clock into the on-disk
// 16/16-bit format.
func toFATTime(t time.Time) (packedTime, packedDate uint16) {
	packedTime = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	year := t.Year()
	if year < 1980 {
		year = 1980
	}
	packedDate = uint16(year-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	return
}

// fromFATTime reverses toFATTime.
func fromFATTime(packedTime, packedDate uint16) time.Time {
	sec := int(packedTime&0x1F) * 2
	min := int((packedTime >> 5) & 0x3F)
	hour := int((packedTime >> 11) & 0x1F)
	day := int(packedDate & 0x1F)
	month := int((packedDate >> 5) & 0x0F)
	year := 1980 + int((packedDate>>9)&0x7F)
	if day == 0 {
		day = 1
	}
	if month == 0 {
		month = 1
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
}
