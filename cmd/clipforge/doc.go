// Command clipforge analyzes video assets, synthesizes edit plans, and
// exports editor project documents.
package main
