// This file is part of Tonelang.
//
// Tonelang is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tonelang is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tonelang.  If not, see <https://www.gnu.org/licenses/>.

// Package curated provides the error type used throughout Tonelang. A curated
// error keeps the format pattern it was created with, meaning the pattern can
// be used to identify the error later:
//
//	err := curated.Errorf("builder: %v", underlying)
//	...
//	if curated.Is(err, "builder: %v") { ... }
//
// Sentinel patterns for errors that cross package boundaries are declared in
// the package that raises them. The deepest error in a chain is typically a
// plain error from the standard library or a support package; everything
// above it should be curated.
package curated
