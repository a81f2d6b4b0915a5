// Package scoring turns ad features into a violation probability with a
// logistic-regression model persisted as JSON.
//
// Manager owns the model lifecycle: it loads the model file at startup and,
// when the file does not exist, trains a model on synthetic data and saves
// it. Scoring itself is a pure function of the features.
package scoring
