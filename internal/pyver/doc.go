// Package pyver implements the subset of the Python packaging version
// grammar (PEP 440) and project naming rules (PEP 503/508) needed to turn
// matrix tokens like "3.8", "1.0rc1" or ">=1.0,<2" into canonical
// constraint expressions.
//
// Versions are parsed with the permissive PEP 440 pattern and rendered in
// normalised form. Specifier sets keep their clauses in declared order so
// that their string form is exactly what the user wrote, minus whitespace.
package pyver
